// Package gate decides whether a user may access gated content by checking
// their membership in every required group.
package gate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/fileshare/internal/chat"
	"github.com/eldtechnologies/fileshare/internal/metrics"
	"github.com/eldtechnologies/fileshare/internal/models"
)

// GroupLister supplies the current set of required groups.
type GroupLister interface {
	ListRequiredGroups(ctx context.Context) ([]models.RequiredGroup, error)
}

// Result is the outcome of one membership evaluation.
type Result struct {
	Admitted bool
	// Missing lists the groups the user is not compliant in, in store order.
	Missing []int64
}

// compliant statuses; "creator" is the platform's name for the group owner.
var compliant = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// IsCompliant reports whether a member status satisfies the requirement.
func IsCompliant(status string) bool {
	return compliant[status]
}

// Gate evaluates membership against the live required-group list. Nothing is
// memoized: membership can change between two checks.
type Gate struct {
	groups  GroupLister
	members chat.MemberLookup
	logger  zerolog.Logger
}

// New creates a Gate.
func New(groups GroupLister, members chat.MemberLookup, logger zerolog.Logger) *Gate {
	return &Gate{
		groups:  groups,
		members: members,
		logger:  logger.With().Str("component", "gate").Logger(),
	}
}

// Check evaluates userID against every required group. A failed status query
// counts as not compliant for that group. An error is returned only when the
// group list itself cannot be read.
func (g *Gate) Check(ctx context.Context, userID int64) (Result, error) {
	groups, err := g.groups.ListRequiredGroups(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list required groups: %w", err)
	}

	ok := make([]bool, len(groups))
	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(i int, groupID int64) {
			defer wg.Done()
			status, err := g.members.MemberStatus(ctx, groupID, userID)
			if err != nil {
				g.logger.Warn().
					Err(err).
					Int64("user_id", userID).
					Int64("group_id", groupID).
					Msg("membership query failed, treating as not joined")
				return
			}
			ok[i] = IsCompliant(status)
		}(i, group.GroupID)
	}
	wg.Wait()

	var res Result
	for i, group := range groups {
		if !ok[i] {
			res.Missing = append(res.Missing, group.GroupID)
		}
	}
	res.Admitted = len(res.Missing) == 0

	if res.Admitted {
		metrics.GateChecks.WithLabelValues("admitted").Inc()
	} else {
		metrics.GateChecks.WithLabelValues("denied").Inc()
	}
	return res, nil
}
