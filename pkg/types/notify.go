package types

type NotifyLevel string

const (
	NotifyInfo    = NotifyLevel("info")
	NotifySuccess = NotifyLevel("success")
	NotifyWarning = NotifyLevel("warning")
	NotifyError   = NotifyLevel("error")
)
