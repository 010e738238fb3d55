package generation

import "notebook-sources-be/internal/entity"

// ShouldTrigger reports whether source should start the notebook's one-time
// content generation. isFirst is computed by the caller from the scope size
// before the triggering change: zero for an insert, one for an update that
// supplies the payload of the only source.
func ShouldTrigger(source *entity.Source, isFirst bool, status entity.GenerationStatus) bool {
	if source == nil || !isFirst {
		return false
	}
	if status != entity.GenerationStatusPending {
		return false
	}
	return HasPayload(source)
}

// HasPayload reports whether source carries what its type needs for
// generation.
func HasPayload(source *entity.Source) bool {
	switch source.Type {
	case entity.SourceTypePDF, entity.SourceTypeAudio:
		return source.FilePath != ""
	case entity.SourceTypeText:
		return source.Content != ""
	case entity.SourceTypeWebsite, entity.SourceTypeYoutube:
		return source.Url != ""
	default:
		return false
	}
}
