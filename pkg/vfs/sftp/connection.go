package sftp

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Connection holds an SSH connection and its SFTP session.
type Connection struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// NewConnection wraps an established session. sshClient may be nil when the session
// runs over some other transport.
func NewConnection(sshClient *ssh.Client, sftpClient *sftp.Client) *Connection {
	return &Connection{sshClient: sshClient, sftpClient: sftpClient}
}

// Dial establishes an SSH connection and opens an SFTP session.
// Authentication uses the SSH agent and the default key files.
func Dial(loc Location) (*Connection, error) {
	authMethods := sshAuthMethods()
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available (tried SSH agent and default keys)") //nolint:err113,perfsprint,lll // actionable
	}

	config := &ssh.ClientConfig{
		User:            loc.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback(),
	}

	sshClient, err := ssh.Dial("tcp", loc.Addr(), config)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient, sftp.MaxPacket(64*1024)) //nolint:mnd // 64KB packets
	if err != nil {
		_ = sshClient.Close()

		return nil, fmt.Errorf("SFTP session creation failed: %w", err)
	}

	return NewConnection(sshClient, sftpClient), nil
}

// Client returns the SFTP client.
func (c *Connection) Client() *sftp.Client {
	return c.sftpClient
}

// Close closes the SFTP session and the SSH connection, returning the first error.
func (c *Connection) Close() error {
	var firstErr error

	if c.sftpClient != nil {
		if err := c.sftpClient.Close(); err != nil {
			firstErr = err
		}
	}

	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when the file exists.
func hostKeyCallback() ssh.HostKeyCallback {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		callback, err := knownhosts.New(filepath.Join(homeDir, ".ssh", "known_hosts"))
		if err == nil {
			return callback
		}
	}

	return ssh.InsecureIgnoreHostKey() //nolint:gosec // no known_hosts to verify against
}

// sshAuthMethods returns the agent first, then any unencrypted default keys.
func sshAuthMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return methods
	}

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyData, err := os.ReadFile(filepath.Join(homeDir, ".ssh", name)) //nolint:gosec // fixed key locations
		if err != nil {
			continue
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			// Passphrase-protected keys are left to the agent.
			continue
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	return methods
}
