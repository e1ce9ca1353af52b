package coresim

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_TwoTasksShareSource(t *testing.T) {
	arch := newTestArch(t, 8)
	node := CreateNode(1, "", Coordinate{X: 2, Y: 3})
	assert.Equal(t, "core-1", node.Name())
	assert.Equal(t, Coordinate{X: 2, Y: 3}, node.Coord())

	taskA := CreateTask(1, node, 4, 1, 0, arch)
	taskB := CreateTask(2, node, 5, 1, 0, arch)

	require.NoError(t, node.Establish(taskA))
	require.NoError(t, node.Establish(taskB))
	assert.Equal(t, 2, node.OpenConnections())
	assert.Equal(t, []Connection{
		{TaskID: 1, SrcNode: 1, DstNode: 4},
		{TaskID: 2, SrcNode: 1, DstNode: 5},
	}, node.Connections())

	require.NoError(t, node.Release(taskA))
	_, present := node.Connection(taskA)
	assert.False(t, present)
	conn, present := node.Connection(taskB)
	require.True(t, present)
	assert.Equal(t, 5, conn.DstNode)

	require.NoError(t, node.Release(taskB))
	assert.Equal(t, 0, node.OpenConnections())

	established, peak := node.ConnectionStats()
	assert.Equal(t, 2, established)
	assert.Equal(t, 2, peak)
}

func TestNode_DisciplineViolations(t *testing.T) {
	arch := newTestArch(t, 8)
	node := CreateNode(1, "left", Coordinate{})
	task := CreateTask(1, node, 2, 1, 0, arch)

	t.Run("ReleaseWithoutEstablish", func(t *testing.T) {
		err := node.Release(task)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResourceDiscipline))
		assert.Contains(t, err.Error(), "holds no connection")
	})

	t.Run("EstablishTwice", func(t *testing.T) {
		require.NoError(t, node.Establish(task))
		err := node.Establish(task)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResourceDiscipline))
		assert.Contains(t, err.Error(), "already holds a connection")
		assert.Equal(t, 1, node.OpenConnections())
	})

	t.Run("ReleaseTwice", func(t *testing.T) {
		require.NoError(t, node.Release(task))
		err := node.Release(task)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrResourceDiscipline))
	})
}

func TestNode_TasksSharingAnIDAreDistinct(t *testing.T) {
	arch := newTestArch(t, 8)
	node := CreateNode(0, "", Coordinate{})
	taskA := CreateTask(0, node, 1, 1, 0, arch)
	taskB := CreateTask(0, node, 2, 1, 0, arch)

	require.NoError(t, node.Establish(taskA))
	require.NoError(t, node.Establish(taskB))
	assert.Equal(t, 2, node.OpenConnections())
	assert.Equal(t, []Connection{
		{TaskID: 0, SrcNode: 0, DstNode: 1},
		{TaskID: 0, SrcNode: 0, DstNode: 2},
	}, node.Connections())

	// releasing one leaves the other's connection in place
	require.NoError(t, node.Release(taskB))
	conn, present := node.Connection(taskA)
	require.True(t, present)
	assert.Equal(t, 1, conn.DstNode)
	_, present = node.Connection(taskB)
	assert.False(t, present)

	err := node.Release(taskB)
	assert.True(t, errors.Is(err, ErrResourceDiscipline))
	require.NoError(t, node.Release(taskA))
	assert.Equal(t, 0, node.OpenConnections())
}

func TestNode_ConcurrentEstablish(t *testing.T) {
	arch := newTestArch(t, 8)
	node := CreateNode(0, "", Coordinate{})

	tasks := make([]*Task, 64)
	for idx := range tasks {
		tasks[idx] = CreateTask(idx+1, node, idx%4, 1, 0, arch)
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			assert.NoError(t, node.Establish(task))
		}(task)
	}
	wg.Wait()
	assert.Equal(t, len(tasks), node.OpenConnections())

	for _, task := range tasks {
		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			assert.NoError(t, node.Release(task))
		}(task)
	}
	wg.Wait()
	assert.Equal(t, 0, node.OpenConnections())
}
