package pkg

import (
	"encoding/base64"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

const (
	envCredentials = "OSS_INDEX_CREDENTIALS"
	envUsername    = "OSS_INDEX_USERNAME"
	envToken       = "OSS_INDEX_TOKEN"
)

// loadDotenv adds the variables of a dotenv file to the environment.
// Variables already set win, and a missing file is not an error.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.With("file_path", path).Wrapf(err, "dotenv load error")
	}
	return nil
}

// credentials resolves the opaque Basic credential string. Pre-encoded
// credentials are used verbatim; otherwise a username and token pair is
// encoded. Flags win over the environment. An empty result means anonymous
// access.
func credentials(encoded, username, token string) string {
	if encoded == "" {
		encoded = os.Getenv(envCredentials)
	}
	if encoded != "" {
		return encoded
	}
	if username == "" {
		username = os.Getenv(envUsername)
	}
	if token == "" {
		token = os.Getenv(envToken)
	}
	if username == "" || token == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + token))
}
