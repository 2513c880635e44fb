package analysis

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// CVSSScore is the CVSS base score and vector of a CVE.
type CVSSScore struct {
	Score   float64
	Metrics string
}

// CVSSScores maps CVE ids to their CVSS data.
type CVSSScores map[string]CVSSScore

// LoadCVSSScores reads a JSON object keyed by CVE id:
//
//	{"CVE-2016-7091": {"score": 4.4, "metrics": "AV:L/AC:M/Au:N/C:C/I:N/A:N"}}
//
// "cvss3_score" and "cvss3_scoring_vector" are accepted as well.
func LoadCVSSScores(path string) (CVSSScores, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON in %s", path)
	}

	scores := make(CVSSScores)
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		score := value.Get("score")
		if !score.Exists() {
			score = value.Get("cvss3_score")
		}
		if !score.Exists() {
			return true
		}
		metrics := value.Get("metrics")
		if !metrics.Exists() {
			metrics = value.Get("cvss3_scoring_vector")
		}
		scores[key.String()] = CVSSScore{Score: score.Float(), Metrics: metrics.String()}
		return true
	})
	return scores, nil
}
