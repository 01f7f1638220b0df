package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// defaultApplicationURL is the fallback for colleges without a dedicated form.
const defaultApplicationURL = "https://lauruseducation.com.au/study-with-us"

var applicationFormMap = map[string]string{
	"allied":  "https://forms.zohopublic.com/lauruseducation/form/AlliedStudentApplicationForm/formperma/NPbbkYR6OL2i4CY2fWpjP3UvN3PrRA5ZYy8xhiaoWwY",
	"paragon": "https://forms.zohopublic.com/lauruseducation/form/ParagonPolytechnicStudentApplicationForm/formperma/llCP88loK2iAIPPFqdiimc_4uAtXpWMCumlo6o7T5e4",
	"hilton":  "https://forms.zohopublic.com/lauruseducation/form/StudentApplicationForm/formperma/Lww_pqqBlFD_H8s8oXlAubdrDRx7tG6fmFt0b5_G4do",
	"collins": "https://forms.zohopublic.com/lauruseducation/form/CollinsAcademyStudentApplicationForm/formperma/7fuuJNbDaxAcSvTwSRCRGDiMDmV-EoB-ZNiDm1wUbm8",
	"future":  "https://forms.zohopublic.com/lauruseducation/form/FutureEnglishApplicationForm/formperma/LWRyxNtlvibpP6Z15Qn8c4ffGw9TlhrThrBl8N4S1aQ",
	// Everthought has multiple enrolment forms; it is handled separately.
}

// ApplicationFormTool returns the enrolment form URL for a partner college.
// It is total: unknown colleges get the general study-with-us URL.
type ApplicationFormTool struct{}

// NewApplicationFormTool creates an ApplicationFormTool.
func NewApplicationFormTool() *ApplicationFormTool { return &ApplicationFormTool{} }

func (t *ApplicationFormTool) Name() string { return string(ToolGetApplicationForm) }

func (t *ApplicationFormTool) Description() string {
	return "Get the student application form URL for one of Laurus Education's partner colleges."
}

func (t *ApplicationFormTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"college": {
				"type": "string",
				"description": "Partner college the student wants to apply to",
				"enum": ["allied", "paragon", "hilton", "collins", "future", "everthought"]
			}
		},
		"required": ["college"]
	}`)
}

func (t *ApplicationFormTool) Execute(_ context.Context, params map[string]any) (string, error) {
	college, err := requireString(params, "college")
	if err != nil {
		return "", err
	}
	return FormLookup(college), nil
}

// FormLookup maps a partner college key to its enrolment form message.
// Total over all inputs.
func FormLookup(college string) string {
	if college == "everthought" {
		return fmt.Sprintf("Everthought college has multiple enrolment forms. "+
			"Direct the user to go to the url '''%s''' where they can find the enrolment form they need", defaultApplicationURL)
	}
	if url, ok := applicationFormMap[college]; ok {
		return fmt.Sprintf("The enrolment form can be found at '''%s'''", url)
	}
	return fmt.Sprintf("Direct the student to '''%s''' where they can find the enrolment form they need", defaultApplicationURL)
}
