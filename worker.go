package poserender

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
)

// ErrWorkerStopped is returned when submitting to a stopped Worker
var ErrWorkerStopped = errors.New("render worker stopped")

// Job is one frame to render
type Job struct {
	// Output is the host frame rendered into, it must not be used by the
	// submitter until the Result is received
	Output *gocv.Mat
	// Keypoints of the people detected in the frame
	Keypoints pose.KeypointSet
	// HeatMaps of the frame, nil keeps the renderer's current source
	HeatMaps HeatMapSource
	// ScaleNetToOutput is the scale from network output to frame size
	ScaleNetToOutput float32
	// Done receives the render result, it should be buffered
	Done chan<- Result
}

// Result is the outcome of rendering a Job
type Result struct {
	// Element is the rendered element, -1 if nothing was rendered
	Element int
	// Label of the rendered element
	Label string
}

// Worker renders frames on a single locked OS thread.  Device memory is
// initialized on that thread before the first frame and released after the
// thread's loop has finished.
type Worker struct {
	renderer *PoseRenderer
	cores    []int
	jobs     chan Job
	done     chan struct{}
	stop     sync.Once
	err      error
}

// NewWorker returns a Worker for the renderer with a job queue of the given
// size.  When cores is not empty the rendering thread is pinned to them.
func NewWorker(renderer *PoseRenderer, cores []int, queue int) *Worker {
	return &Worker{
		renderer: renderer,
		cores:    cores,
		jobs:     make(chan Job, queue),
		done:     make(chan struct{}),
	}
}

// Start launches the rendering thread and waits for its initialization to
// complete.  Cancelling ctx stops the thread after the frame in progress.
func (w *Worker) Start(ctx context.Context) error {

	ready := make(chan error, 1)

	go w.run(ctx, ready)

	if err := <-ready; err != nil {
		return err
	}

	return nil
}

// run is the rendering thread loop
func (w *Worker) run(ctx context.Context, ready chan<- error) {

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	if len(w.cores) > 0 {
		if err := SetCPUAffinity(w.cores); err != nil {
			Logger().Warn("Render thread affinity not set", "cores", w.cores, "error", err)
		}
	}

	if err := w.renderer.InitializationOnThread(); err != nil {
		w.err = err
		w.renderer.Close()
		ready <- err
		return
	}

	ready <- nil

	// teardown only once no frame is in flight
	defer func() {
		if err := w.renderer.Close(); err != nil {
			w.err = err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return

		case job, ok := <-w.jobs:
			if !ok {
				return
			}

			w.render(job)
		}
	}
}

// render processes a single job
func (w *Worker) render(job Job) {

	if job.HeatMaps != nil {
		w.renderer.SetHeatMapSource(job.HeatMaps)
	}

	element, label := w.renderer.RenderPose(job.Output, job.Keypoints, job.ScaleNetToOutput)

	if job.Done != nil {
		job.Done <- Result{Element: element, Label: label}
	}
}

// drain fails all queued jobs after the worker has been cancelled
func (w *Worker) drain() {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			if job.Done != nil {
				job.Done <- Result{Element: -1}
			}
		default:
			return
		}
	}
}

// Submit queues a frame for rendering, blocking while the queue is full
func (w *Worker) Submit(ctx context.Context, job Job) (err error) {

	select {
	case <-w.done:
		return ErrWorkerStopped
	default:
	}

	// sending on a closed queue after Stop
	defer func() {
		if recover() != nil {
			err = ErrWorkerStopped
		}
	}()

	select {
	case w.jobs <- job:
		return nil
	case <-w.done:
		return ErrWorkerStopped
	case <-ctx.Done():
		return fmt.Errorf("error submitting frame: %w", ctx.Err())
	}
}

// Done returns a channel closed once the worker has stopped and released
// the renderer
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Stop closes the job queue, waits for queued frames to render and the
// device memory to be released
func (w *Worker) Stop() error {

	w.stop.Do(func() {
		close(w.jobs)
	})

	<-w.done

	return w.err
}
