package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

const defaultNodeID = 1

var (
	node    *snowflake.Node
	once    sync.Once
	initErr error
)

// Init sets the snowflake node. Processes that may run side by side (CLI in
// CI, webhook server) should use different node ids. Only the first call wins.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New returns a time-ordered unique id, used as the sync run id.
// Uses the default node when Init was never called.
func New() int64 {
	if err := Init(defaultNodeID); err != nil {
		panic("id: snowflake node unavailable: " + err.Error())
	}
	return node.Generate().Int64()
}
