package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certchat/certchat-go/pkg/cert"
)

type testDirs struct {
	ca       string
	keystore string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	keystoreKDF = &cert.KDFParams{Time: 1, Memory: 1024, Threads: 1}
	t.Setenv(passphraseEnv, "")
	root := t.TempDir()
	return testDirs{ca: filepath.Join(root, "ca"), keystore: filepath.Join(root, "keystore")}
}

// executeCommand runs the root command with the test directories prepended
// and command-local flags reset to their defaults.
func executeCommand(d testDirs, args ...string) (string, error) {
	initCAForceFlag = false
	initCANameFlag = "certchat CA"
	issueForceFlag = false
	issueCertOutFlag = ""
	showOutputFlag = "text"
	passphraseFlag = ""

	buf := new(bytes.Buffer)
	root := RootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--ca-dir", d.ca, "--keystore-dir", d.keystore}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestInitCA(t *testing.T) {
	d := newTestDirs(t)

	out, err := executeCommand(d, "init-ca", "--name", "Family CA")
	require.NoError(t, err)
	assert.Contains(t, out, `Created CA "Family CA"`)

	ca, err := cert.CADir(d.ca).Load()
	require.NoError(t, err)
	assert.Equal(t, "Family CA", ca.Certificate.Subject.CommonName)
	assert.True(t, ca.Certificate.IsCA)

	_, err = executeCommand(d, "init-ca")
	assert.ErrorIs(t, err, cert.ErrCAExists)

	_, err = executeCommand(d, "init-ca", "--force", "--name", "Other CA")
	require.NoError(t, err)
	replaced, err := cert.CADir(d.ca).LoadCertificate()
	require.NoError(t, err)
	assert.Equal(t, "Other CA", replaced.Subject.CommonName)
}

func TestIssue(t *testing.T) {
	d := newTestDirs(t)
	_, err := executeCommand(d, "init-ca")
	require.NoError(t, err)

	certOut := filepath.Join(t.TempDir(), "alice.pem")
	out, err := executeCommand(d, "issue", "alice", "--passphrase", "secret", "--cert-out", certOut)
	require.NoError(t, err)
	assert.Contains(t, out, `Issued identity for "alice"`)

	ks := &cert.Keystore{Dir: d.keystore}
	id, err := ks.Load("alice", []byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Account())
	require.NoError(t, cert.VerifyPeerCertificate(id.Certificate, id.CACertificate))

	written, err := cert.ReadCertFile(certOut)
	require.NoError(t, err)
	assert.Equal(t, id.Certificate.Raw, written.Raw)

	_, err = executeCommand(d, "issue", "alice", "--passphrase", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(d, "issue", "alice", "--passphrase", "other", "--force")
	require.NoError(t, err)
	_, err = ks.Load("alice", []byte("secret"))
	assert.ErrorIs(t, err, cert.ErrBadPassphrase)
}

func TestIssueRequirements(t *testing.T) {
	d := newTestDirs(t)

	_, err := executeCommand(d, "issue", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passphrase required")

	_, err = executeCommand(d, "issue", "alice", "--passphrase", "secret")
	assert.Error(t, err, "no CA yet")

	_, err = executeCommand(d, "issue")
	assert.Error(t, err, "account argument required")
}

func TestIssueWithoutCAKey(t *testing.T) {
	d := newTestDirs(t)
	ca, err := cert.GenerateCA("Public Only")
	require.NoError(t, err)
	require.NoError(t, cert.CADir(d.ca).Save(&cert.CA{Certificate: ca.Certificate}, false))

	_, err = executeCommand(d, "issue", "bob", "--passphrase", "secret")
	assert.ErrorIs(t, err, cert.ErrCANotAvailable)
}

func TestIssuePassphraseFromEnv(t *testing.T) {
	d := newTestDirs(t)
	_, err := executeCommand(d, "init-ca")
	require.NoError(t, err)

	t.Setenv(passphraseEnv, "from-env")
	_, err = executeCommand(d, "issue", "carol")
	require.NoError(t, err)

	_, err = (&cert.Keystore{Dir: d.keystore}).Load("carol", []byte("from-env"))
	assert.NoError(t, err)
}

func TestShow(t *testing.T) {
	d := newTestDirs(t)
	_, err := executeCommand(d, "init-ca", "--name", "Show CA")
	require.NoError(t, err)

	out, err := executeCommand(d, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "CA:")
	assert.Contains(t, out, "Subject:     Show CA")
	assert.Contains(t, out, "Private key: present")

	_, err = executeCommand(d, "issue", "dave", "--passphrase", "pw")
	require.NoError(t, err)

	out, err = executeCommand(d, "show", "dave", "--passphrase", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Account:")
	assert.Contains(t, out, "Subject:     dave")
	assert.Contains(t, out, "Status:      valid")

	out, err = executeCommand(d, "show", "dave", "--passphrase", "pw", "-o", "yaml")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "subject: dave"), out)
	assert.Contains(t, out, "valid: true")

	_, err = executeCommand(d, "show", "dave", "--passphrase", "wrong")
	assert.ErrorIs(t, err, cert.ErrBadPassphrase)

	_, err = executeCommand(d, "show", "-o", "xml")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(newTestDirs(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "certchat-keygen version")
	assert.Contains(t, out, "wire protocol")
}
