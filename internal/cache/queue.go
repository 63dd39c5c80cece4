package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VodJob actions. Upload hands a generated VOD document to the content
// platform; Delete retracts it. Both are invoked by archived-program id.
const (
	VodActionUpload = "upload"
	VodActionDelete = "delete"
)

// VodJob describes one background hand-off to the VOD publishing workflow.
type VodJob struct {
	ProgramID  int64  `json:"program_id"`
	ArchivedID int64  `json:"archived_id"`
	Action     string `json:"action"`
}

// VodQueue is the Redis list key used for the VOD publishing job queue.
const VodQueue = "guidevault:jobs:vod"

// Enqueue pushes a job onto the left side of a Redis list.
func Enqueue(ctx context.Context, r *Redis, queue string, job VodJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks until a job is available on the right side of the list
// or the timeout expires. When the timeout elapses without a job,
// (nil, nil) is returned so the caller can loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*VodJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // timeout, no job available
		}
		// Context cancelled means shutdown, not a queue failure.
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job VodJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
