package synth

import (
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// ConfigFrom builds the synthesizer config from the application config.
func ConfigFrom(c *common.Config) Config {
	return Config{
		Signatories:         SignatoriesFrom(c.Signatories),
		GenerateTemperature: c.Gemini.GenerateTemperature,
		FormatTemperature:   c.Gemini.FormatTemperature,
		MaxTokens:           c.Gemini.GenerateMaxTokens,
		MarkdownToHTML:      c.Pipeline.MarkdownToHTML,
	}
}

func OrganizationFrom(c common.OrganizationConfig) entity.Organization {
	return entity.Organization{
		Name:    c.Name,
		Address: c.Address,
		Phone:   c.Phone,
		Email:   c.Email,
		Website: c.Website,
		LogoURL: c.LogoURL,
	}
}

func SignatoriesFrom(in []common.SignatoryConfig) []entity.Signatory {
	out := make([]entity.Signatory, 0, len(in))
	for _, s := range in {
		out = append(out, entity.Signatory{
			Role:           s.Role,
			Name:           s.Name,
			Designation:    s.Designation,
			SignatureImage: s.SignatureImage,
		})
	}
	return out
}
