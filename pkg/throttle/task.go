package throttle

import (
	"encoding/json"
	"time"
)

// LockTTLMargin keeps the lock of a crashed holder alive slightly longer than its delay.
const LockTTLMargin = 700 * time.Millisecond

type (
	Task struct {
		QueueID string
		ID      string
		Delay   time.Duration
	}

	Item struct {
		ID     string
		Delay  time.Duration
		Locked bool
	}

	// Snapshot is the state of a queue observed by a single store call.
	Snapshot []Item

	taskJSON struct {
		QueueID string `json:"qid"`
		ID      string `json:"id"`
		Delay   int64  `json:"delay"`
	}
)

func LockTTL(task Task) time.Duration {
	return task.Delay + LockTTLMargin
}

func (t Task) Item(locked bool) Item {
	return Item{
		ID:     t.ID,
		Delay:  t.Delay,
		Locked: locked,
	}
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(taskJSON{
		QueueID: t.QueueID,
		ID:      t.ID,
		Delay:   t.Delay.Milliseconds(),
	})
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw taskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{
		QueueID: raw.QueueID,
		ID:      raw.ID,
		Delay:   time.Duration(raw.Delay) * time.Millisecond,
	}
	return nil
}

func (i Item) GetID() string {
	return i.ID
}

func (s Snapshot) Locked() (Item, bool) {
	for _, item := range s {
		if item.Locked {
			return item, true
		}
	}
	return Item{}, false
}
