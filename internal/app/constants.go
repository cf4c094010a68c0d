package app

const (
	Name           = "debugpanel"
	AppID          = "in.skobk.debugpanel"
	ConfigFilename = "config.json"
	LogFilename    = "app.log"
)
