package groups

import "errors"

var ErrTournamentNotFound = errors.New("tournament not found")
var ErrInvalidGroupsCount = errors.New("groupsCount must be between 2 and 26")
var ErrNoTeams = errors.New("tournament has no teams")
