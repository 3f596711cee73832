package directory

import "github.com/aadityaamehrotra17/JarvisMD/internal/models"

// manchesterEntries returns the embedded Manchester hospital directory.
// Reference data only; ratings and schedules are fixtures, not live rosters.
func manchesterEntries() []entry {
	return []entry{
		{
			specialist: models.Specialist{
				ID:              "dr_james_hartwell",
				Name:            "Dr. James Hartwell",
				Specialty:       "Cardiologist",
				Email:           "j.hartwell@manchesterheart.nhs.uk",
				Phone:           "+44-161-276-1234",
				Hospital:        "Manchester Royal Infirmary",
				Expertise:       []string{"Heart Failure", "Cardiomegaly", "Arrhythmia", "Coronary Disease"},
				ExperienceYears: 18,
				Rating:          4.9,
				Seniority:       "Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"09:00", "10:00", "11:00", "14:00", "15:00"},
				"tuesday":   {"08:00", "09:00", "10:00", "15:00", "16:00"},
				"wednesday": {"09:00", "10:00", "14:00", "15:00"},
				"thursday":  {"08:00", "09:00", "11:00", "14:00", "16:00"},
				"friday":    {"09:00", "10:00", "11:00", "14:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_sarah_mitchell",
				Name:            "Dr. Sarah Mitchell",
				Specialty:       "Cardiologist",
				Email:           "s.mitchell@wythenshawe.nhs.uk",
				Phone:           "+44-161-291-2345",
				Hospital:        "Wythenshawe Hospital",
				Expertise:       []string{"Interventional Cardiology", "Cardiomegaly"},
				ExperienceYears: 22,
				Rating:          4.8,
				Seniority:       "Senior Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"08:00", "09:00", "14:00", "15:00"},
				"tuesday":   {"09:00", "10:00", "11:00", "14:00"},
				"wednesday": {"08:00", "10:00", "15:00", "16:00"},
				"thursday":  {"09:00", "10:00", "14:00"},
				"friday":    {"08:00", "09:00", "10:00", "15:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_emily_rhodes",
				Name:            "Dr. Emily Rhodes",
				Specialty:       "Cardiologist",
				Email:           "e.rhodes@mft.nhs.uk",
				Phone:           "+44-161-276-3456",
				Hospital:        "Manchester Royal Infirmary",
				Expertise:       []string{"Echocardiography", "Valvular Disease"},
				ExperienceYears: 8,
				Rating:          4.6,
				Seniority:       "Registrar",
			},
			schedule: weeklySchedule{
				"monday":    {"10:00", "11:00", "15:00"},
				"wednesday": {"09:00", "10:00", "11:00", "14:00"},
				"friday":    {"10:00", "11:00", "14:00", "15:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_lisa_patel",
				Name:            "Dr. Lisa Patel",
				Specialty:       "Pulmonologist",
				Email:           "l.patel@cmft.nhs.uk",
				Phone:           "+44-161-276-6789",
				Hospital:        "Manchester Royal Infirmary",
				Expertise:       []string{"Pneumonia", "COPD", "Lung Cancer"},
				ExperienceYears: 15,
				Rating:          4.8,
				Seniority:       "Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"09:00", "10:00", "14:00", "15:00"},
				"tuesday":   {"08:00", "09:00", "14:00", "15:00", "16:00"},
				"thursday":  {"09:00", "10:00", "11:00", "14:00"},
				"friday":    {"09:00", "10:00", "14:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_david_wilson",
				Name:            "Dr. David Wilson",
				Specialty:       "Pulmonologist",
				Email:           "d.wilson@wythenshawe.nhs.uk",
				Phone:           "+44-161-291-7890",
				Hospital:        "Wythenshawe Hospital",
				Expertise:       []string{"Lung Transplant", "Pneumonia"},
				ExperienceYears: 20,
				Rating:          4.9,
				Seniority:       "Senior Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"08:00", "09:00", "10:00", "14:00"},
				"tuesday":   {"09:00", "10:00", "15:00", "16:00"},
				"wednesday": {"08:00", "09:00", "14:00", "15:00"},
				"thursday":  {"10:00", "11:00", "14:00", "15:00"},
				"friday":    {"08:00", "09:00", "10:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_aisha_khan",
				Name:            "Dr. Aisha Khan",
				Specialty:       "Pulmonologist",
				Email:           "a.khan@mft.nhs.uk",
				Phone:           "+44-161-276-8901",
				Hospital:        "North Manchester General Hospital",
				Expertise:       []string{"Asthma", "Interstitial Lung Disease"},
				ExperienceYears: 6,
				Rating:          4.4,
				Seniority:       "Registrar",
			},
			schedule: weeklySchedule{
				"tuesday":  {"10:00", "11:00", "14:00"},
				"thursday": {"09:00", "10:00", "15:00", "16:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_karen_white",
				Name:            "Dr. Karen White",
				Specialty:       "Emergency Medicine",
				Email:           "k.white@cmft.nhs.uk",
				Phone:           "+44-161-276-0123",
				Hospital:        "Manchester Royal Infirmary",
				Expertise:       []string{"Trauma", "Critical Care"},
				ExperienceYears: 17,
				Rating:          4.8,
				Seniority:       "Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"08:00", "09:00", "10:00", "11:00"},
				"tuesday":   {"08:00", "09:00", "10:00"},
				"wednesday": {"14:00", "15:00", "16:00"},
				"thursday":  {"08:00", "09:00", "14:00"},
				"friday":    {"08:00", "09:00", "10:00", "11:00"},
				"saturday":  {"09:00", "10:00"},
			},
		},
		{
			specialist: models.Specialist{
				ID:              "dr_mark_davis",
				Name:            "Dr. Mark Davis",
				Specialty:       "Emergency Medicine",
				Email:           "m.davis@wythenshawe.nhs.uk",
				Phone:           "+44-161-291-1234",
				Hospital:        "Wythenshawe Hospital",
				Expertise:       []string{"Emergency Surgery", "Critical Care"},
				ExperienceYears: 19,
				Rating:          4.9,
				Seniority:       "Senior Consultant",
			},
			schedule: weeklySchedule{
				"monday":    {"14:00", "15:00", "16:00"},
				"tuesday":   {"08:00", "09:00", "14:00", "15:00"},
				"wednesday": {"08:00", "09:00", "10:00"},
				"thursday":  {"14:00", "15:00", "16:00"},
				"friday":    {"08:00", "09:00", "14:00"},
				"sunday":    {"10:00", "11:00"},
			},
		},
	}
}
