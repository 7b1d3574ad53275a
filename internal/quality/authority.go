package quality

import (
	"net/url"
	"strings"

	"github.com/ppiankov/veracity/internal/model"
)

// Publishers, indexes, preprint servers and agencies
var defaultPrimary = []string{
	"doi.org", "pubmed.ncbi.nlm.nih.gov", "ncbi.nlm.nih.gov", "nih.gov", "who.int",
	"nature.com", "science.org", "cell.com", "thelancet.com", "nejm.org", "bmj.com",
	"jamanetwork.com", "plos.org", "springer.com", "link.springer.com", "wiley.com",
	"onlinelibrary.wiley.com", "sciencedirect.com", "elsevier.com", "tandfonline.com",
	"academic.oup.com", "sagepub.com", "frontiersin.org", "mdpi.com", "biomedcentral.com",
	"cochranelibrary.com", "arxiv.org", "biorxiv.org", "medrxiv.org", "jstor.org",
	"pnas.org", "acs.org", "ieee.org", "acm.org",
}

// Encyclopedias and reputable science media
var defaultSecondary = []string{
	"wikipedia.org", "britannica.com", "scientificamerican.com", "newscientist.com",
	"sciencedaily.com", "medicalnewstoday.com", "statnews.com", "theconversation.com",
}

// AuthorityClassifier rates a source URL's host
type AuthorityClassifier struct {
	primaryMap   map[string]bool
	secondaryMap map[string]bool
}

// NewAuthorityClassifier builds a classifier from the built-in lists plus
// the configured extras. config may be nil.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	classifier := &AuthorityClassifier{
		primaryMap:   make(map[string]bool),
		secondaryMap: make(map[string]bool),
	}

	primary := defaultPrimary
	secondary := defaultSecondary
	if config != nil {
		primary = append(append([]string{}, primary...), config.PrimaryDomains...)
		secondary = append(append([]string{}, secondary...), config.SecondaryDomains...)
	}

	for _, domain := range primary {
		classifier.primaryMap[strings.ToLower(domain)] = true
	}
	for _, domain := range secondary {
		classifier.secondaryMap[strings.ToLower(domain)] = true
	}

	return classifier
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.TierUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	if matchDomain(a.primaryMap, host) {
		return model.TierPrimary
	}
	if matchDomain(a.secondaryMap, host) {
		return model.TierSecondary
	}

	// Government and academic hosts
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// matchDomain matches host exactly or as a subdomain (www.nature.com)
func matchDomain(domains map[string]bool, host string) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
