package connectors

const (
	TopicConnStatus = "conn.status"
	TopicPanelState = "panel.state"
	TopicSnapshot   = "debugger.snapshot"
	TopicDiagnostic = "panel.diagnostic"
)
