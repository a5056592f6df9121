package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error kind.
type SuggestionGenerator interface {
	Generate(kind Kind, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error kind and affected path.
func (g *suggestionGenerator) Generate(kind Kind, affectedPath string) []string {
	switch kind {
	case KindNotFound:
		return g.generateNotFoundSuggestions(affectedPath)
	case KindPermissionDenied:
		return g.generatePermissionSuggestions(affectedPath)
	case KindUnavailable:
		return g.generateUnavailableSuggestions()
	case KindUnreadable:
		return []string{
			"Containers cannot be opened as content; enter them instead",
		}
	case KindReadOnly:
		return []string{
			"This source does not accept writes; pick a different target profile",
		}
	case KindConflict:
		return []string{
			"The item changed since it was listed; refresh the pane and retry",
		}
	case KindValidation:
		return []string{
			"Check the target path and the selected items",
		}
	case KindUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateNotFoundSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Refresh the pane; "+path+" may have been removed")
	} else {
		suggestions = append(suggestions, "Refresh the pane; the item may have been removed")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure the profile's account has read/write access",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions on %s", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnavailableSuggestions() []string {
	return []string{
		"The backend did not answer in time or refused the connection",
		"Try the operation again - this is usually transient",
		"Check network connectivity and the profile's endpoint",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the command log for more details",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the item is accessible: "+path)
	}

	return suggestions
}
