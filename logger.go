package dnssim

import "github.com/sirupsen/logrus"

// Log is the package's logger: Receive's drops and the UDP path's send
// failures are logged to it at Debug; the TCP connection paths do not log.
// The CLI sets its level from -l/--log-level (cmd/dnssim-replay/main.go);
// embedders may replace it outright.
var Log = logrus.New()

func init() {
	Log.SetLevel(logrus.InfoLevel)
}
