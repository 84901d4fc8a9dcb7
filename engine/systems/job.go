package systems

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// JobTask is one unit of work run by a worker.
type JobTask struct {
	Name string
	Run  func() error
	// Optional callbacks, called on the worker goroutine.
	OnComplete func()
	OnFailure  func(err error)
	// Called after OnComplete or OnFailure.
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var (
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
)

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogDebug("job '%s' failed: %s", job.Name, err)
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
				} else if job.OnComplete != nil {
					job.OnComplete()
				}

				if job.OnCompletionCallback != nil {
					job.OnCompletionCallback()
				}
			}
		}()
	}
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

// Shutdown waits for queued jobs and stops the workers.
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
	return nil
}

// Submit queues jt, blocking while the queue is full.
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll submits tasks and waits until all of them finished. Failures are
// combined into one error.
func (js *JobSystem) RunAll(tasks []JobTask) error {
	var (
		wg     sync.WaitGroup
		mutex  sync.Mutex
		result error
	)
	wg.Add(len(tasks))
	for _, task := range tasks {
		task := task
		onFailure := task.OnFailure
		task.OnFailure = func(err error) {
			mutex.Lock()
			result = errors.CombineErrors(result, errors.Wrapf(err, "job '%s'", task.Name))
			mutex.Unlock()
			if onFailure != nil {
				onFailure(err)
			}
		}
		done := task.OnCompletionCallback
		task.OnCompletionCallback = func() {
			if done != nil {
				done()
			}
			wg.Done()
		}
		js.Submit(task)
	}
	wg.Wait()
	return result
}
