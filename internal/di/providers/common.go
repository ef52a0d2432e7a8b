package providers

import "time"

// shutdownTimeout bounds how long Shutdown waits for a running rebuild to finish.
const shutdownTimeout = 30 * time.Second
