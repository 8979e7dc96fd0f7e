package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv applies KEY=VALUE pairs from the given file to the process
// environment. Variables already set in the environment win over file
// values. A missing file surfaces as the open error; callers treat that
// as "no local overrides".
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := parseEnvLine(sc.Text())
		if !ok {
			continue
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return sc.Err()
}

// parseEnvLine splits one file line into a key/value pair. Blank lines
// and "#" comments report ok == false. Single or double quotes around
// the value are stripped.
func parseEnvLine(raw string) (key, value string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	return key, value, key != ""
}
