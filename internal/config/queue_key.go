package config

type QueueKeyStruct struct {
	// FailedWrites holds remote batches that exhausted their retries and
	// wait for the sync worker to replay them.
	FailedWrites string
	// OfflineResults holds exam results that could not be persisted
	// remotely at submission time.
	OfflineResults string
}

var QueueKey = QueueKeyStruct{
	FailedWrites:   "sync:failed_writes",
	OfflineResults: "sync:offline_results",
}
