package amqp

import (
	"encoding/json"
	"time"
)

// BatchJob tells the worker that a batch is ready for processing. It
// carries only the batch ID; the worker loads the messages from storage.
type BatchJob struct {
	BatchID   string    `json:"batchId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBatchJob creates a job for the given batch.
func NewBatchJob(batchID string) *BatchJob {
	return &BatchJob{
		BatchID:   batchID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the job to JSON bytes.
func (j *BatchJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// BatchJobFromJSON decodes a job from JSON bytes.
func BatchJobFromJSON(data []byte) (*BatchJob, error) {
	var job BatchJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
