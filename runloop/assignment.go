package runloop

import "sort"

// Assignment maps task names to workers and partitions to the (possibly
// many, for broadcast partitions) workers subscribed to them. It is built
// once, at RunLoop construction, and never mutated afterward — this module
// doesn't support dynamic rebalancing.
type Assignment struct {
	taskOfName       map[TaskName]*TaskWorker
	tasksOfPartition map[Partition][]*TaskWorker
	orderedNames     []TaskName
}

func newAssignment(workers []*TaskWorker) *Assignment {
	a := &Assignment{
		taskOfName:       make(map[TaskName]*TaskWorker, len(workers)),
		tasksOfPartition: make(map[Partition][]*TaskWorker),
	}
	for _, w := range workers {
		a.taskOfName[w.Name()] = w
		a.orderedNames = append(a.orderedNames, w.Name())
		for _, p := range w.task.Partitions() {
			a.tasksOfPartition[p] = append(a.tasksOfPartition[p], w)
		}
	}
	// Stable iteration order over task names: each tick invokes every
	// worker's run in the same order.
	sort.Slice(a.orderedNames, func(i, j int) bool { return a.orderedNames[i] < a.orderedNames[j] })
	return a
}
