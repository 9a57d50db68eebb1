// internal/knowledge/drafter.go
package knowledge

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/taskhub/taskhub/internal/types"
)

// draftJob is one autodraft request
type draftJob struct {
	task   *types.Task
	report *types.Report
}

// Drafter writes knowledge drafts for highly-scored reports in the
// background. Drafting happens strictly after the evaluation commit;
// a failed draft is logged and dropped, never surfaced to the caller.
type Drafter struct {
	client       *Client
	summarizer   *Summarizer
	collectionID string

	jobs chan draftJob
	wg   sync.WaitGroup
	once sync.Once
}

// NewDrafter creates a drafter backed by the given document client
func NewDrafter(client *Client, summarizer *Summarizer, collectionID string) *Drafter {
	return &Drafter{
		client:       client,
		summarizer:   summarizer,
		collectionID: collectionID,
		jobs:         make(chan draftJob, 64),
	}
}

// Start launches the worker pool
func (d *Drafter) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	log.Printf("[KNOWLEDGE] Draft workers started (%d)", workers)
}

// Enqueue schedules a draft for a task/report pair. Dropping the job
// when the queue is full keeps evaluation latency flat.
func (d *Drafter) Enqueue(task *types.Task, report *types.Report) {
	select {
	case d.jobs <- draftJob{task: task, report: report}:
	default:
		log.Printf("[KNOWLEDGE] Draft queue full, dropping draft for task %s", task.ID)
	}
}

// Stop drains the queue and waits for in-flight drafts
func (d *Drafter) Stop() {
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *Drafter) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.draft(ctx, job)
		}
	}
}

func (d *Drafter) draft(ctx context.Context, job draftJob) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	title, content := d.summarizer.Summarize(ctx, job.task, job.report)
	doc, err := d.client.CreateDoc(ctx, d.collectionID, title, content, "")
	if err != nil {
		log.Printf("[KNOWLEDGE] Error drafting knowledge for task %s: %v", job.task.ID, err)
		return
	}
	log.Printf("[KNOWLEDGE] Drafted %q (%s) for task %s", title, doc.ID, job.task.ID)
}
