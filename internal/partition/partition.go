// Package partition derives physical collection names from tenant identity.
//
// Every ingested statement lands in a collection named after the consumer
// and course it belongs to, so tenants never share a collection. Statements
// arriving without tenant context are not rejected; they are grouped into a
// distinguishable "null" partition instead of being mixed into tenant data.
//
// Identifiers that themselves contain the separator tokens would alias
// another partition. Upstream LTI consumers do not produce such ids and the
// resolver does not reject them.
package partition

// Sentinel replaces a missing consumer or course identifier.
const Sentinel = "null"

// Resolve computes the collection name for a (consumer, course) pair under
// the given base collection name. It is a pure function: the same inputs
// always yield the same name, so ingestion and later lookups agree.
func Resolve(base, consumerID, courseID string) string {
	if consumerID == "" {
		consumerID = Sentinel
	}
	if courseID == "" {
		courseID = Sentinel
	}
	return base + "_consumerId_" + consumerID + "_courseId_" + courseID
}
