package stems

import "strings"

// Proposal is one suggested stem substitution for a track.
type Proposal struct {
	TrackPath         string
	ReplacedStemType  string
	ReplacingStemType string
	ReplacingStemPath string
	SimilarityScore   float64
}

// StoragePath joins a storage root, folder, and filename with single slashes.
func StoragePath(root, folder, filename string) string {
	root = strings.TrimRight(root, "/")
	return root + "/" + folder + "/" + filename
}

// GenerateCombinations expands matched stems into substitution proposals.
//
// For each group, the families of the track's other original stems form the
// remaining set; only the replaced stem's own slot is removed, so a second
// stem of the same family still blocks a same-family replacement. A match
// whose family is in the remaining set is skipped. Unclassified stems never
// collide. Proposals keep the matcher's ranking.
func GenerateCombinations(trackPath string, groups []StemGroup, originals []string, families *FamilyTable, storageRoot string) []Proposal {
	originalFamilies := make([]Family, len(originals))
	for i, original := range originals {
		originalFamilies[i] = families.Classify(OriginalStemType(original))
	}

	var proposals []Proposal
	for _, group := range groups {
		replacedType := OriginalStemType(group.OriginalStem)
		remaining := remainingFamilies(originals, originalFamilies, group.OriginalStem)

		for _, match := range group.Matches {
			replacing := families.Classify(match.StemType)
			if replacing.Known() {
				if _, taken := remaining[replacing]; taken {
					continue
				}
			}
			proposals = append(proposals, Proposal{
				TrackPath:         trackPath,
				ReplacedStemType:  replacedType,
				ReplacingStemType: match.StemType,
				ReplacingStemPath: StoragePath(storageRoot, match.Folder, match.StemFilename),
				SimilarityScore:   match.SimilarityScore,
			})
		}
	}
	return proposals
}

func remainingFamilies(originals []string, families []Family, replaced string) map[Family]struct{} {
	remaining := make(map[Family]struct{}, len(families))
	skipped := false
	for i, original := range originals {
		if !skipped && original == replaced {
			skipped = true
			continue
		}
		if families[i].Known() {
			remaining[families[i]] = struct{}{}
		}
	}
	return remaining
}
