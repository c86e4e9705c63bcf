package aptos

import (
	"fmt"
	"os"
	"strings"
)

func NodeURLFromEnv() (string, error) {
	nodeURL := strings.TrimSpace(firstNonEmpty(os.Getenv("APTOS_NODE_URL"), os.Getenv("RPC_URL")))
	if nodeURL == "" {
		return DefaultNodeURL, nil
	}
	if !strings.HasPrefix(nodeURL, "http") {
		return "", fmt.Errorf("aptos node url must be http(s)://..., got %q", nodeURL)
	}
	if strings.Contains(nodeURL, "YOUR_KEY") {
		return "", fmt.Errorf("aptos node url still contains placeholder YOUR_KEY. Set APTOS_NODE_URL to your provider URL")
	}
	return nodeURL, nil
}

// CredentialFromEnv reads PRIVATE_KEY (and the optional WALLET_ADDRESS pin).
func CredentialFromEnv() (Credential, error) {
	pk := strings.TrimSpace(firstNonEmpty(os.Getenv("APTOS_PRIVATE_KEY"), os.Getenv("PRIVATE_KEY")))
	if pk == "" {
		return nil, fmt.Errorf("wallet required: set APTOS_PRIVATE_KEY or PRIVATE_KEY")
	}
	if addr := strings.TrimSpace(os.Getenv("WALLET_ADDRESS")); addr != "" {
		return KeyRecord{Private: pk, Address: addr}, nil
	}
	return RawKey(pk), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
