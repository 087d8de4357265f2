package models

// VetoReason names the advisory signal that blocked a shutdown.
type VetoReason string

// Advisory vetoes.
const (
	VetoNone          VetoReason = ""
	VetoKeepaliveFile VetoReason = "keepalive_file"
	VetoBackupProcess VetoReason = "backup_process"
)

// VetoResult holds the outcome of the pre-shutdown veto checks.
type VetoResult struct {
	Vetoed bool
	Reason VetoReason
	Detail string // marker path or matched process line
}
