package cert

import (
	"errors"
	"fmt"
)

// LoadOrCreateIdentity returns the identity of account from ks. If no
// keystore exists yet, a new identity is issued by the CA in caDir and
// saved under passphrase; this requires caDir to hold the CA private key.
//
// The second return value reports whether the identity was newly created.
func LoadOrCreateIdentity(ks *Keystore, account string, passphrase []byte, caDir CADir) (*Identity, bool, error) {
	id, err := ks.Load(account, passphrase)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrKeystoreNotFound) {
		return nil, false, err
	}

	ca, err := caDir.Load()
	if err != nil {
		return nil, false, fmt.Errorf("no keystore for %q and cannot issue one: %w", account, err)
	}
	id, err = NewIdentity(ca, account)
	if err != nil {
		return nil, false, err
	}
	if err := ks.Save(id, passphrase); err != nil {
		return nil, false, fmt.Errorf("save keystore: %w", err)
	}
	return id, true, nil
}
