package events

import (
	"testing"
	"time"
)

// A nil publisher is the unconfigured case and must be safe everywhere the
// pipeline calls it.
func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.PublishImported(VersionImported{Project: "demo", Version: "1.0.0", Pages: 3, Images: 1, At: time.Now()})
	p.PublishDeleted(VersionDeleted{Project: "demo", Version: "1.0.0", At: time.Now()})
	p.PublishLatestChanged(LatestChanged{Project: "demo", OldLatest: "1.0.0", At: time.Now()})
	p.Close()
}
