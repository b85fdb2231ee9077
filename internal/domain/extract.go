package domain

// ExtractPrimary returns the post's main attachment: the first populated
// slot in the fixed priority order photo, video, animation, audio, document,
// voice, video note, sticker. For photos the largest size variant wins.
// Returns false when the post carries no media, which is a normal case.
func ExtractPrimary(p *InboundPost) (MediaRef, bool) {
	refs := ExtractAll(p)
	if len(refs) == 0 {
		return MediaRef{}, false
	}
	return refs[0], true
}

// ExtractAll enumerates every attachment the post carries, in the same
// priority order ExtractPrimary uses. A transport event exposes at most one
// attachment per type slot.
func ExtractAll(p *InboundPost) []MediaRef {
	var refs []MediaRef

	if v, ok := bestPhoto(p.Photo); ok {
		refs = append(refs, MediaRef{Kind: MediaPhoto, FileID: v.FileID, UniqueID: v.UniqueID})
	}
	for _, ref := range []*MediaRef{p.Video, p.Animation, p.Audio, p.Document, p.Voice, p.VideoNote, p.Sticker} {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}

	return refs
}

// bestPhoto picks the highest-resolution variant from a photo size ladder.
func bestPhoto(ladder []PhotoVariant) (PhotoVariant, bool) {
	if len(ladder) == 0 {
		return PhotoVariant{}, false
	}

	best := ladder[0]
	for _, v := range ladder[1:] {
		if v.Width*v.Height > best.Width*best.Height {
			best = v
		}
	}
	return best, true
}
