package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sfc/internal/logging"
)

// MinSupportedVersion is the oldest knowledge base document version this
// engine accepts. Newer versions load; older ones are rejected.
const MinSupportedVersion = "2.0"

var (
	// ErrInvalidDocument marks a knowledge base that cannot be parsed as
	// structured data or is missing required metadata.
	ErrInvalidDocument = errors.New("invalid knowledge base document")
	// ErrUnsupportedVersion marks a knowledge base older than MinSupportedVersion.
	ErrUnsupportedVersion = errors.New("unsupported knowledge base version")
)

const metadataKey = "_metadata"

// Load reads and parses the knowledge base document at path.
func Load(path string, logger *slog.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidDocument, path, err)
	}
	return Parse(data, logger)
}

// Parse builds a Store from a knowledge base document. The document may be
// YAML or JSON (JSON parses as YAML). Rule order within a category follows the
// document; categories are processed in document order, so the first category
// claiming an extension heads its candidate list.
func Parse(data []byte, logger *slog.Logger) (*Store, error) {
	logger = logging.WithComponent(logger, "rules")

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}

	version, err := documentVersion(root)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	store := &Store{
		version: version,
		names:   map[string]Rule{},
		exts:    map[string][]Rule{},
		logger:  logger,
	}

	forEachPair(root, func(key, value *yaml.Node) {
		category := key.Value
		if category == metadataKey {
			return
		}
		if value.Kind != yaml.MappingNode {
			logger.Warn("skipping non-mapping category", logging.String("category", category))
			return
		}
		forEachPair(value, func(ruleKey, ruleValue *yaml.Node) {
			rule, err := decodeRule(category, ruleValue)
			if err != nil {
				logger.Warn("skipping malformed rule",
					logging.String("category", category),
					logging.String("key", ruleKey.Value),
					logging.Error(err))
				return
			}
			store.add(ruleKey.Value, rule)
		})
	})

	logger.Info("knowledge base loaded",
		logging.String("version", version),
		logging.Int("rules", store.Len()))
	return store, nil
}

func (s *Store) add(key string, rule Rule) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if strings.HasPrefix(key, ".") {
		s.exts[key] = append(s.exts[key], rule)
		return
	}
	if existing, ok := s.names[key]; ok {
		s.logger.Warn("duplicate name rule ignored",
			logging.String("name", key),
			logging.String("kept_category", existing.Category),
			logging.String("ignored_category", rule.Category))
		return
	}
	s.names[key] = rule
}

func decodeRule(category string, node *yaml.Node) (Rule, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		// Bare string: description-only rule (legacy document shape).
		return Rule{Category: category, Description: node.Value}, nil
	case yaml.MappingNode:
		var body struct {
			Description string `yaml:"description"`
			Analysis    []struct {
				Type     string `yaml:"type"`
				Contains string `yaml:"contains_str"`
			} `yaml:"analysis_rules"`
		}
		if err := node.Decode(&body); err != nil {
			return Rule{}, err
		}
		rule := Rule{Category: category, Description: body.Description}
		for _, raw := range body.Analysis {
			rule.Analysis = append(rule.Analysis, AnalysisRule{
				Type:     raw.Type,
				Contains: []byte(raw.Contains),
			})
		}
		return rule, nil
	default:
		return Rule{}, fmt.Errorf("rule value must be a string or mapping")
	}
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

func documentVersion(root *yaml.Node) (string, error) {
	var version string
	forEachPair(root, func(key, value *yaml.Node) {
		if key.Value != metadataKey || value.Kind != yaml.MappingNode {
			return
		}
		forEachPair(value, func(metaKey, metaValue *yaml.Node) {
			if metaKey.Value == "version" {
				version = strings.TrimSpace(metaValue.Value)
			}
		})
	})
	if version == "" {
		return "", fmt.Errorf("%w: missing _metadata.version", ErrInvalidDocument)
	}
	return version, nil
}

func checkVersion(version string) error {
	major, minor, err := parseVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	minMajor, minMinor, _ := parseVersion(MinSupportedVersion)
	if major < minMajor || (major == minMajor && minor < minMinor) {
		return fmt.Errorf("%w: document version %s is older than %s",
			ErrUnsupportedVersion, version, MinSupportedVersion)
	}
	return nil
}

func parseVersion(version string) (major, minor int, err error) {
	parts := strings.SplitN(strings.TrimSpace(version), ".", 3)
	if len(parts) == 0 || parts[0] == "" {
		return 0, 0, fmt.Errorf("unparseable version %q", version)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unparseable version %q", version)
	}
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("unparseable version %q", version)
		}
	}
	return major, minor, nil
}

func forEachPair(mapping *yaml.Node, fn func(key, value *yaml.Node)) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fn(mapping.Content[i], mapping.Content[i+1])
	}
}
