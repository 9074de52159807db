package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/veris-dev/veris-lrs/internal/lrs"
	"github.com/veris-dev/veris-lrs/internal/store"
	"github.com/veris-dev/veris-lrs/pkg/schema"
	"github.com/veris-dev/veris-lrs/pkg/sdk"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	ctx := context.Background()
	command := strings.ToUpper(os.Args[1])
	args := os.Args[2:]

	// MIGRATE works on local data directories and needs no daemon.
	if command == "MIGRATE" {
		if len(args) < 2 {
			log.Fatal("Usage: lrs MIGRATE <src-dir> <dst-dir>")
		}
		copied, err := migrateDirs(ctx, args[0], args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Migrated %d partition(s)\n", copied)
		return
	}

	addr := os.Getenv("LRS_ADDR")
	if addr == "" {
		addr = "localhost:4000"
	}

	client, err := sdk.Connect(addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	if token := os.Getenv("LRS_TOKEN"); token != "" {
		client.SetToken(token)
	}

	switch command {
	case "STATUS":
		status, err := client.Status(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(status)

	case "LOGIN":
		if len(args) < 2 {
			log.Fatal("Usage: lrs LOGIN <email> <password>")
		}
		res, err := client.Authenticate(ctx, args[0], args[1])
		if err != nil {
			log.Fatal(err)
		}
		// Print the token so it can go into LRS_TOKEN for later calls.
		fmt.Println(res.Token)

	case "REGISTER":
		if len(args) < 2 {
			log.Fatal("Usage: lrs REGISTER <email> <password>")
		}
		err := client.Register(ctx, schema.Registration{Email: args[0], Password: args[1]})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "INGEST":
		if len(args) < 1 {
			log.Fatal("Usage: lrs INGEST <json statement | ->")
		}
		doc, err := readDocument(args[0])
		if err != nil {
			log.Fatal(err)
		}
		if err := client.Ingest(ctx, doc); err != nil {
			log.Fatal(err)
		}
		fmt.Println("OK")

	case "QUERY":
		var req lrs.QueryRequest
		if len(args) > 0 {
			if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
				log.Fatalf("Invalid query spec: %v", err)
			}
		}
		res, err := client.Query(ctx, req)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(res)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

// migrateDirs copies every partition from one data directory into another,
// reusing the same store-to-store migration the daemon runs for imports.
// It returns the number of partitions copied.
func migrateDirs(ctx context.Context, srcDir, dstDir string) (int, error) {
	srcPersist, err := store.NewPersistence(srcDir, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open source directory: %w", err)
	}
	srcData, err := srcPersist.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load source directory: %w", err)
	}
	src := store.NewMemStore(srcData, nil)

	dstPersist, err := store.NewPersistence(dstDir, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination directory: %w", err)
	}
	dstData, err := dstPersist.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load destination directory: %w", err)
	}
	dst := store.NewMemStore(dstData, dstPersist)

	if err := store.Migrate(ctx, src, dst); err != nil {
		return 0, err
	}
	dst.Wait()
	return len(srcData), nil
}

func readDocument(arg string) (map[string]any, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid statement JSON: %w", err)
	}
	return doc, nil
}

func printUsage() {
	fmt.Println("lrs - CLI for the LRS daemon")
	fmt.Println("\nUsage:")
	fmt.Println("  lrs STATUS")
	fmt.Println("  lrs LOGIN <email> <password>")
	fmt.Println("  lrs REGISTER <email> <password>")
	fmt.Println("  lrs INGEST '<json statement>'   (or '-' to read stdin)")
	fmt.Println("  lrs QUERY '<json query spec>'")
	fmt.Println("  lrs MIGRATE <src-dir> <dst-dir>")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  LRS_ADDR     Address of the daemon (default: localhost:4000)")
	fmt.Println("  LRS_TOKEN    Bearer token for gated operations")
}

func printJSON(v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(bytes))
}
