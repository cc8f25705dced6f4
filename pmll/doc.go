// Package pmll implements the hardened resource queue: a per-resource
// FIFO serializer built on top of the promise package's chaining, so that
// operations submitted against the same resource run one at a time, in
// submission order, while a failure in one operation never stalls the
// ones behind it in the queue.
package pmll
