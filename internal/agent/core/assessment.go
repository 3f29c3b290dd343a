package core

import (
	"github.com/mohammad-safakhou/scout/provider"
	"github.com/mohammad-safakhou/scout/utils"
)

// passSentinel is the only judge value that counts as a pass. A JSON
// boolean true does not.
const passSentinel = "True"

// QualityAssessment is the judge's verdict on one integration response.
type QualityAssessment struct {
	Pass    bool
	RawPass string
	Reason  string
}

func assessmentFrom(out provider.Outcome) QualityAssessment {
	if !out.OK() {
		return QualityAssessment{Reason: out.Text()}
	}
	v, _ := out.Value("pass")
	s, isString := v.(string)
	return QualityAssessment{
		Pass:    isString && s == passSentinel,
		RawPass: utils.Str(v),
		Reason:  out.Field("reason"),
	}
}
