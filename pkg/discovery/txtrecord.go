package discovery

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// InstanceName returns the instance name for an account.
func InstanceName(account string) string {
	return InstancePrefix + account
}

// EncodePeerTXT creates the TXT records a peer announces.
func EncodePeerTXT(info *PeerInfo) TXTRecordMap {
	fp := strings.ToLower(info.Fingerprint)
	if len(fp) > FingerprintPrefixLen {
		fp = fp[:FingerprintPrefixLen]
	}
	return TXTRecordMap{
		TXTKeyAccount:     info.Account,
		TXTKeyFingerprint: fp,
	}
}

// DecodePeerTXT parses the TXT records of a discovered peer.
func DecodePeerTXT(txt TXTRecordMap) (account, fingerprint string, err error) {
	account, ok := txt[TXTKeyAccount]
	if !ok || account == "" {
		return "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAccount)
	}

	fingerprint, ok = txt[TXTKeyFingerprint]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyFingerprint)
	}
	if len(fingerprint) != FingerprintPrefixLen {
		return "", "", ErrInvalidFingerprint
	}
	if _, err := hex.DecodeString(fingerprint); err != nil {
		return "", "", ErrInvalidFingerprint
	}

	return account, strings.ToLower(fingerprint), nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
