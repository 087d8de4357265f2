package models

// Power-off methods.
const (
	PowerOffLocal = "local"
	PowerOffSSH   = "ssh"
)

// PowerOffConfig selects how the server powers the device off.
type PowerOffConfig struct {
	Method  string             // "local" (default) or "ssh"
	Command string             // local command, default /sbin/poweroff
	SSH     *SSHShutdownConfig // nil unless Method is "ssh"
}

// SSHShutdownConfig holds SSH shutdown configuration.
type SSHShutdownConfig struct {
	Host       string
	Port       int
	Username   string
	PrivateKey []byte // loaded from file path
	KeyPath    string // path to key file
	OS         string // "linux" (default) or "windows"
}

// PowerOffResult holds the result of a power-off request.
type PowerOffResult struct {
	CommandRun bool
	Output     string
	Error      error
}
