package mentoring

type ExpertiseArea struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Expertise is the fixed taxonomy used for profile expertise and mentorship focus areas.
var Expertise = []ExpertiseArea{
	{ID: 1, Name: "Cognitive Assessment", Category: "Assessment"},
	{ID: 2, Name: "Autism Spectrum Conditions", Category: "SEND"},
	{ID: 3, Name: "ADHD", Category: "SEND"},
	{ID: 4, Name: "Dyslexia and Specific Learning Difficulties", Category: "SEND"},
	{ID: 5, Name: "Social, Emotional and Mental Health", Category: "Wellbeing"},
	{ID: 6, Name: "Speech, Language and Communication", Category: "SEND"},
	{ID: 7, Name: "Early Years Development", Category: "Phase"},
	{ID: 8, Name: "Behaviour Support", Category: "Practice"},
	{ID: 9, Name: "Trauma-Informed Practice", Category: "Wellbeing"},
	{ID: 10, Name: "Inclusive Curriculum Design", Category: "Teaching"},
	{ID: 11, Name: "Assistive and Educational Technology", Category: "Teaching"},
	{ID: 12, Name: "Multi-Agency Working", Category: "Practice"},
	{ID: 13, Name: "Statutory Assessment and EHCPs", Category: "Assessment"},
	{ID: 14, Name: "Research and Evidence-Based Practice", Category: "Professional"},
	{ID: 15, Name: "Leadership and Supervision", Category: "Professional"},
}

var expertiseByID = func() map[int]ExpertiseArea {
	m := make(map[int]ExpertiseArea, len(Expertise))
	for _, e := range Expertise {
		m[e.ID] = e
	}
	return m
}()

func IsExpertise(id int) bool {
	_, ok := expertiseByID[id]
	return ok
}

// ExpertiseName returns the name of the expertise area, or "" for unknown ids.
func ExpertiseName(id int) string {
	return expertiseByID[id].Name
}

// ExpertiseNames maps ids to names, skipping unknown ids.
func ExpertiseNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := ExpertiseName(id); name != "" {
			names = append(names, name)
		}
	}
	return names
}
