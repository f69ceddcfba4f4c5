// Package scheduler provides the bounded priority queue that orders all
// outbound traffic. Messages dequeue strictly by priority tier; within one
// tier they dequeue in arrival order. The queue holds at most its configured
// capacity and can evict the lowest-priority, oldest resident to admit a
// strictly more urgent arrival.
package scheduler
