// Package command implements the §4.3 command engine: validate input,
// load the relevant write model(s), enforce state-machine preconditions,
// push events atomically, reduce them back into the aggregate, and return
// ObjectDetails. One file per aggregate (user.go, org.go, ...).
package command

import "time"

// Context carries the per-request scope required by every command
// (spec.md §3). The commands in this package perform no permission
// resolution (step 2 of the command engine) on it, and nothing in this
// repository routes them through pkg/application.PermissionMiddleware: a
// command runs with whatever Context its caller passes.
type Context struct {
	InstanceID string
	OrgID      string
	UserID     string
	Roles      []string
	RequestID  string
	Timestamp  time.Time
}

// SystemContext returns the context used for system-initiated commands
// (projections, migrations, scheduled jobs), per spec.md §3.
func SystemContext(instanceID string) Context {
	return Context{
		InstanceID: instanceID,
		OrgID:      instanceID,
		UserID:     "system",
		Roles:      []string{"SYSTEM"},
		Timestamp:  time.Now(),
	}
}
