package rules

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sfc/internal/fileutil"
	"sfc/internal/logging"
)

// NewRule describes one rule to add or update in the knowledge base document.
type NewRule struct {
	Category    string
	Key         string
	Description string
	Analysis    []AnalysisRule
}

// SaveRule adds or updates a rule in the on-disk knowledge base. The previous
// document is backed up alongside the original and restored if the write
// fails. A conflicting simple rule for the same key in another category is
// upgraded to the smart shape so both candidates survive as an ambiguity the
// content sniffer can resolve.
//
// The document is rewritten as YAML; the loader accepts both YAML and the
// legacy JSON shape, so mutated knowledge bases keep loading.
func SaveRule(path string, rule NewRule, logger *slog.Logger) error {
	logger = logging.WithComponent(logger, "rules")

	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if err := applyRule(doc, rule, logger); err != nil {
		return err
	}
	return writeDocument(path, doc, logger)
}

func readDocument(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidDocument, path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if root := documentRoot(&doc); root == nil || root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidDocument)
	}
	return &doc, nil
}

func applyRule(doc *yaml.Node, rule NewRule, logger *slog.Logger) error {
	key := strings.ToLower(strings.TrimSpace(rule.Key))
	category := strings.TrimSpace(rule.Category)
	if key == "" || category == "" {
		return fmt.Errorf("rule requires a category and a key")
	}

	root := documentRoot(doc)

	// Upgrade conflicting simple rules in other categories so the new rule
	// becomes one candidate of an ambiguity instead of silently shadowing.
	forEachPair(root, func(catKey, catValue *yaml.Node) {
		if catKey.Value == metadataKey || catKey.Value == category || catValue.Kind != yaml.MappingNode {
			return
		}
		forEachPair(catValue, func(ruleKey, ruleValue *yaml.Node) {
			if !strings.EqualFold(ruleKey.Value, key) || ruleValue.Kind != yaml.ScalarNode {
				return
			}
			logger.Warn("upgrading conflicting simple rule to smart rule",
				logging.String("key", key),
				logging.String("category", catKey.Value))
			upgraded := smartRuleNode(ruleValue.Value, nil)
			*ruleValue = *upgraded
		})
	})

	categoryNode := findOrAddMapping(root, category)
	ruleNode := smartRuleNode(rule.Description, rule.Analysis)
	setMappingKey(categoryNode, key, ruleNode)
	return nil
}

func writeDocument(path string, doc *yaml.Node, logger *slog.Logger) error {
	backupPath := path + ".bak"
	if err := fileutil.CopyFile(path, backupPath); err != nil {
		return fmt.Errorf("back up knowledge base: %w", err)
	}

	data, err := yaml.Marshal(documentRoot(doc))
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if restoreErr := fileutil.CopyFile(backupPath, path); restoreErr != nil {
			logger.Error("failed to restore knowledge base backup",
				logging.String("backup", backupPath),
				logging.Error(restoreErr))
		} else {
			logger.Warn("restored knowledge base from backup after failed write",
				logging.String("backup", backupPath))
		}
		return fmt.Errorf("write knowledge base: %w", err)
	}
	return nil
}

func smartRuleNode(description string, analysis []AnalysisRule) *yaml.Node {
	analysisSeq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, rule := range analysis {
		analysisSeq.Content = append(analysisSeq.Content, &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				scalarNode("type"), scalarNode(rule.Type),
				scalarNode("contains_str"), scalarNode(string(rule.Contains)),
			},
		})
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalarNode("description"), scalarNode(description),
			scalarNode("analysis_rules"), analysisSeq,
		},
	}
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func findOrAddMapping(root *yaml.Node, key string) *yaml.Node {
	var found *yaml.Node
	forEachPair(root, func(k, v *yaml.Node) {
		if found == nil && k.Value == key && v.Kind == yaml.MappingNode {
			found = v
		}
	})
	if found != nil {
		return found
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalarNode(key), mapping)
	return mapping
}

func setMappingKey(mapping *yaml.Node, key string, value *yaml.Node) {
	var replaced bool
	forEachPair(mapping, func(k, v *yaml.Node) {
		if !replaced && strings.EqualFold(k.Value, key) {
			*v = *value
			replaced = true
		}
	})
	if !replaced {
		mapping.Content = append(mapping.Content, scalarNode(key), value)
	}
}
