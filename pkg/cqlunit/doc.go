// Package cqlunit is the test harness: it provisions a Cassandra node,
// loads datasets before a test and cleans keyspaces afterwards.
//
// A typical test:
//
//	func TestOrders(t *testing.T) {
//		cluster := cqlunit.StartClusterT(t, cqlunit.Config{})
//		exec := cluster.Setup(t, ordersDataset)
//		...
//	}
package cqlunit
