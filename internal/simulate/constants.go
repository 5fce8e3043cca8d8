package simulate

import "time"

// HTTP status code constants.
const (
	statusOK = 200
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	processingDelay      = 2 * time.Second
	percentageMultiplier = 100
)
