package export

import (
	"strings"

	"github.com/go-ini/ini"
)

const defaultHost = "localhost:1521"

// confParams abstracts parameters loaded from ini file. Will provide defaults
// when receiver is nil or parameter is not defined.
type confParams struct {
	host, service, user string
	password            *string
	excludeTables       []string
	excludeColumns      map[string][]string
}

func (c *confParams) GetHost() string {
	if c == nil || c.host == "" {
		return defaultHost
	}

	return c.host
}

// N.B. There is no default for service
func (c *confParams) GetService() string {
	if c == nil {
		return ""
	}

	return c.service
}

// N.B. There is no default for user
func (c *confParams) GetUser() string {
	if c == nil {
		return ""
	}

	return c.user
}

// N.B. There is no default for password
func (c *confParams) GetPassword() string {
	if c == nil || c.password == nil {
		return ""
	}

	return *c.password
}

func (c *confParams) GetExcludeTables() []string {
	if c == nil {
		return nil
	}

	return c.excludeTables
}

// GetExcludeColumns returns the column names excluded from the export of
// tableName. The lookup is case insensitive.
func (c *confParams) GetExcludeColumns(tableName string) []string {
	if c == nil {
		return nil
	}

	return c.excludeColumns[strings.ToLower(tableName)]
}

// newConfParams attempts to load a confParams struct from a path to an ini file.
func newConfParams(confFilePath string) (*confParams, error) {
	confParams := &confParams{}

	if confFilePath == "" {
		return confParams, nil
	}

	creds, err := ini.Load(confFilePath)
	if err != nil {
		return nil, err
	}

	if creds.HasSection("client") {
		clientSection := creds.Section("client")
		confParams.host = clientSection.Key("host").String()
		confParams.service = clientSection.Key("service").String()
		confParams.user = clientSection.Key("user").String()

		if clientSection.HasKey("password") {
			pw := clientSection.Key("password").String()
			confParams.password = &pw
		}
	}

	if creds.HasSection("export") {
		confParams.excludeTables = creds.Section("export").Key("exclude-tables").Strings(",")
	}

	if creds.HasSection("exclude-columns") {
		section := creds.Section("exclude-columns")
		confParams.excludeColumns = make(map[string][]string, len(section.Keys()))
		for _, key := range section.Keys() {
			confParams.excludeColumns[strings.ToLower(key.Name())] = key.Strings(",")
		}
	}

	return confParams, nil
}
