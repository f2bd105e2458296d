package hook

type Plan struct {
	Enabled bool

	PreIngestCommands  []string
	PostIngestCommands []string

	DryRun   bool
	FailFast bool
}

// Commands returns the commands configured for stage.
func (p *Plan) Commands(stage Stage) []string {
	switch stage {
	case PreIngest:
		return p.PreIngestCommands
	case PostIngest:
		return p.PostIngestCommands
	}
	return nil
}
