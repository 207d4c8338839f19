package config

import "strings"

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.KnowledgeBase,
		&c.Paths.StateDir,
		&c.Paths.LogDir,
	} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	normalized := make([]string, 0, len(c.Scanner.IgnoreNames))
	for _, name := range c.Scanner.IgnoreNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			normalized = append(normalized, name)
		}
	}
	c.Scanner.IgnoreNames = normalized

	return nil
}
