package db

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// defaultQuestion describes one seed catalog entry before encoding.
type defaultQuestion struct {
	qtype    string
	label    string
	desc     string
	required bool
	options  interface{}
}

var defaultQuestions = []defaultQuestion{
	{
		qtype:    models.QuestionScale,
		label:    "How comfortable are you with technology?",
		required: true,
		options:  models.ScaleOptions{Min: 1, Max: 5, MinLabel: "Not at all", MaxLabel: "Extremely"},
	},
	{
		qtype: models.QuestionCheckbox,
		label: "What barriers prevent you or your community from using technology more?",
		options: []string{
			"Cost of internet / devices", "Lack of training or skills",
			"Limited internet access in my area", "Don't see the need",
			"Privacy / security concerns", "Lack of local tech support", "Other",
		},
	},
	{
		qtype: models.QuestionCheckbox,
		label: "Which digital skills would you most like to learn?",
		options: []string{
			"Basic computer literacy", "Coding / Software development",
			"Digital marketing", "Cybersecurity", "Data analysis", "Graphic design",
			"AI / Machine learning", "Project management", "Other",
		},
	},
	{
		qtype: models.QuestionDropdown,
		label: "Which technology topic matters most to you?",
		options: []string{
			"Affordable internet access", "Digital government services",
			"Tech education in schools", "Cybersecurity and data privacy",
			"Support for local tech startups", "E-commerce development",
			"Smart city infrastructure", "Telemedicine and e-health",
			"Digital financial inclusion", "Environmental tech solutions",
		},
	},
	{
		qtype: models.QuestionCheckbox,
		label: "Which government services should be available online first?",
		options: []string{
			"Online tax filing", "Digital ID / passport renewal",
			"Business registration online", "Online court services",
			"E-health records", "Online education portal", "Digital land registry",
			"Online utility payments", "Government job portal", "Emergency alert system",
		},
	},
	{
		qtype: models.QuestionCheckbox,
		label: "Which community programs would you participate in?",
		options: []string{
			"Free coding workshops", "Tech career mentorship",
			"Small business tech grants", "Community Wi-Fi hotspots",
			"Youth tech programs", "Senior digital literacy classes",
			"Women in tech initiatives", "Hackathons and competitions",
			"Tech internship programs", "Open data initiatives",
		},
	},
	{
		qtype:    models.QuestionTextarea,
		label:    "What is the single biggest technology priority for The Bahamas?",
		desc:     "Tell us in your own words.",
		required: true,
	},
	{
		qtype: models.QuestionText,
		label: "Anything else you'd like to share?",
	},
}

// SeedQuestions inserts the default question catalog into an empty questions
// table. An already-populated catalog is left untouched.
func SeedQuestions(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Question{}).Count(&count).Error; err != nil {
		return fmt.Errorf("db: count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i, dq := range defaultQuestions {
		q := models.Question{
			Type:      dq.qtype,
			Label:     dq.label,
			Required:  dq.required,
			SortOrder: i + 1,
			Active:    true,
		}
		if dq.desc != "" {
			desc := dq.desc
			q.Description = &desc
		}
		if dq.options != nil {
			data, err := json.Marshal(dq.options)
			if err != nil {
				return fmt.Errorf("db: marshal options for %q: %w", dq.label, err)
			}
			opts := string(data)
			q.Options = &opts
		}
		if err := db.Create(&q).Error; err != nil {
			return fmt.Errorf("db: seed question %q: %w", dq.label, err)
		}
	}
	return nil
}

// SeedSettings ensures required site settings exist, without overwriting
// values an admin already changed.
func SeedSettings(db *gorm.DB) error {
	setting := models.SiteSetting{Key: models.SettingSurveyOpen, Value: "true"}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&setting)
	if result.Error != nil {
		return fmt.Errorf("db: seed settings: %w", result.Error)
	}
	return nil
}
