// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.grabdocs.
//
// Adapters:
//   - ConfigStore: TOML-based configuration with GRABDOCS_* environment overrides
//   - PromptStore: user-editable answer prompts
package file
