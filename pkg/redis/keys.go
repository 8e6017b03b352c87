package redis

const defaultKeyPrefix = "throttle:"

// queueKey is the list of serialized tasks: throttle:queue:{queueID}
func queueKey(prefix, queueID string) string { return prefix + "queue:" + queueID }

// lockKey holds the id of the task owning the queue: throttle:lock:{queueID}
func lockKey(prefix, queueID string) string { return prefix + "lock:" + queueID }
