package redis

import (
	"fmt"

	"github.com/mcoot/guessgame/internal/model"
)

// Key prefix for all guessgame data
const keyPrefix = "guessgame"

// delegationKey returns the Redis key for a browser session's Delegation
func delegationKey(id model.SessionID) string {
	return fmt.Sprintf("%s:delegation:%s", keyPrefix, id)
}

// pendingLoginKey returns the Redis key for a PendingLogin by OAuth state
func pendingLoginKey(state string) string {
	return fmt.Sprintf("%s:pending_login:%s", keyPrefix, state)
}
