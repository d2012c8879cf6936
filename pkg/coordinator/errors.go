package coordinator

import (
	"fmt"

	"github.com/supervm/txcore/pkg/types"
)

func errUnknownShard(shardID uint16) error {
	return &types.CoordinatorError{
		Kind:    types.CoordinatorParticipantUnreachable,
		ShardID: shardID,
		Err:     fmt.Errorf("no transport route to shard"),
	}
}
