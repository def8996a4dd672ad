package collab

import (
	"time"

	"github.com/google/uuid"
)

// maxActivityEntries caps the feed; oldest entries are evicted first.
const maxActivityEntries = 100

// addActivity prepends an entry to the activity feed.
func (c *Coordinator) addActivity(t ActivityType, userID, userName, componentID, message string) {
	entry := ActivityEntry{
		ID:          uuid.NewString(),
		Type:        t,
		UserID:      userID,
		UserName:    userName,
		Timestamp:   time.Now(),
		ComponentID: componentID,
		Message:     message,
	}

	c.mu.Lock()
	c.activity = append([]ActivityEntry{entry}, c.activity...)
	if len(c.activity) > maxActivityEntries {
		c.activity = c.activity[:maxActivityEntries]
	}
	c.mu.Unlock()
}

// RecordActivity lets the host surface edit/save/publish actions in the
// shared feed.
func (c *Coordinator) RecordActivity(t ActivityType, componentID, message string) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	userID := c.localUserID
	userName := c.local.Name
	c.mu.Unlock()

	c.addActivity(t, userID, userName, componentID, message)
	return nil
}

// Activity returns a copy of the feed, newest first.
func (c *Coordinator) Activity() []ActivityEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ActivityEntry(nil), c.activity...)
}
