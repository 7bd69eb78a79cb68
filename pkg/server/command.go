package server

// Command is one page service operation selected on the command line.
type Command interface {
	Name() string
}

// MigrateCommand creates or updates the store schema. Running it repeatedly
// is safe.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// RunCommand serves the HTTP API until the context is canceled.
type RunCommand struct {
	// Migrate runs the schema bootstrap before serving.
	Migrate bool
}

func (c *RunCommand) Name() string {
	return "run"
}
