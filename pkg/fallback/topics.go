package fallback

// Disclaimer is the phrase every response block carries.
const Disclaimer = "This is general information only."

// TechnicalDifficulty is returned when an exchange fails in an unexpected way.
// It always reminds the user about emergency services.
const TechnicalDifficulty = `I apologize, but I'm experiencing technical difficulties. Please try again in a moment.

For immediate medical concerns, please contact your healthcare provider or emergency services.

Remember: This AI assistant provides general information only and should not replace professional medical advice. ` + Disclaimer

// DefaultResponse answers anything no topic matches.
const DefaultResponse = `Thank you for your medical question. I'm here to provide general health information.

**Important reminders:**
- This AI provides general information only
- Always consult healthcare professionals for medical advice
- For emergencies, call emergency services immediately
- Don't use this information to self-diagnose or self-treat

**For your specific question:** I recommend discussing this with your healthcare provider who can provide personalized medical advice based on your complete medical history and current condition.

**Important:** ` + Disclaimer + ` Would you like me to help you find general information about any specific medical topic?`

// Topic names in the default table.
const (
	TopicHeadache   = "headache"
	TopicFever      = "fever"
	TopicChestPain  = "chest_pain"
	TopicMedication = "medication"
	TopicLegPain    = "leg_pain"
	TopicBackPain   = "back_pain"
	TopicCovid      = "covid"
	TopicDiabetes   = "diabetes"
)

// DefaultTopics returns the built-in topic table in priority order.
// The returned slice is a fresh copy.
func DefaultTopics() []Topic {
	return []Topic{
		{
			Name:     TopicHeadache,
			Keywords: []string{"headache", "head pain"},
			Response: `Headaches can have many causes including stress, dehydration, or tension.

**General advice:**
- Rest in a quiet, dark room
- Apply a cool compress to your forehead
- Stay hydrated
- Consider over-the-counter pain relief (if appropriate)

**Seek immediate medical attention if:**
- Sudden, severe headache
- Headache with fever, stiff neck, or confusion
- Headache after head injury

**Important:** ` + Disclaimer + ` Consult a healthcare professional for proper diagnosis and treatment.`,
		},
		{
			Name:     TopicFever,
			Keywords: []string{"fever", "temperature"},
			Response: `Fever is your body's natural response to infection or illness.

**General care:**
- Rest and stay hydrated
- Monitor temperature regularly
- Use fever-reducing medications as directed
- Cool compresses can help

**Seek medical attention if:**
- Fever above 103°F (39.4°C)
- Fever lasting more than 3 days
- Fever with severe symptoms

**Important:** ` + Disclaimer + ` Consult a healthcare professional for proper evaluation.`,
		},
		{
			Name:     TopicChestPain,
			Keywords: []string{"chest pain", "chest discomfort"},
			Response: `Chest pain can be serious and should be evaluated promptly.

**Immediate action needed:**
- If severe chest pain, call emergency services immediately
- Don't ignore chest pain, especially if it spreads to arm, neck, or jaw
- Chest pain with shortness of breath requires urgent care

**Common causes:**
- Heart-related issues
- Muscle strain
- Acid reflux
- Anxiety

**Important:** ` + Disclaimer + ` Chest pain requires professional medical evaluation.`,
		},
		{
			Name:     TopicMedication,
			Keywords: []string{"medication", "drug", "pill"},
			Response: `Medication information should always be discussed with healthcare professionals.

**General guidelines:**
- Take medications as prescribed
- Don't share medications with others
- Store medications properly
- Be aware of potential interactions

**Always consult your doctor or pharmacist about:**
- Medication interactions
- Side effects
- Proper dosing
- Storage requirements

**Important:** ` + Disclaimer + ` Consult healthcare professionals for specific medication advice.`,
		},
		{
			Name:     TopicLegPain,
			Keywords: []string{"leg pain", "leg ache", "legs hurt"},
			Response: `Leg pain can have various causes and should be evaluated based on severity and duration.

**Common causes:**
- Muscle strain or overuse
- Poor circulation
- Nerve compression
- Arthritis or joint issues
- Blood clots (deep vein thrombosis)

**When to seek immediate medical attention:**
- Sudden, severe leg pain
- Pain with swelling, redness, or warmth
- Pain that worsens with walking
- Leg pain with chest pain or shortness of breath

**General care:**
- Rest and elevate the leg
- Apply ice for acute pain
- Gentle stretching and movement
- Over-the-counter pain relief (if appropriate)

**Important:** ` + Disclaimer + ` Persistent or severe leg pain requires professional medical evaluation.`,
		},
		{
			Name:     TopicBackPain,
			Keywords: []string{"back pain", "backache"},
			Response: `Back pain is very common and usually improves with time and proper care.

**Common causes:**
- Muscle or ligament strain
- Poor posture
- Herniated discs
- Arthritis
- Stress and tension

**Self-care measures:**
- Maintain good posture
- Gentle stretching and strengthening exercises
- Apply heat or ice
- Over-the-counter pain relief
- Stay active within comfort limits

**Seek medical attention if:**
- Pain persists for more than a few weeks
- Pain radiates down the leg
- Numbness or weakness in legs
- Loss of bowel or bladder control

**Important:** ` + Disclaimer + ` Consult healthcare professionals for proper diagnosis and treatment.`,
		},
		{
			Name:     TopicCovid,
			Keywords: []string{"covid", "coronavirus"},
			Response: `COVID-19 is a respiratory illness caused by the SARS-CoV-2 virus.

**Common symptoms:**
- Fever or chills
- Cough
- Shortness of breath
- Fatigue
- Loss of taste or smell

**Prevention:**
- Get vaccinated
- Wear masks in crowded areas
- Practice good hygiene
- Maintain social distance

**Seek emergency care if:**
- Trouble breathing
- Persistent chest pain or pressure
- New confusion or bluish lips

**Important:** ` + Disclaimer + ` Consult healthcare professionals for specific guidance.`,
		},
		{
			Name:     TopicDiabetes,
			Keywords: []string{"diabetes", "blood sugar"},
			Response: `Diabetes is a condition that affects how your body processes blood sugar.

**Types:**
- Type 1: Body doesn't produce insulin
- Type 2: Body doesn't use insulin properly
- Gestational: Develops during pregnancy

**Management:**
- Monitor blood sugar levels
- Follow prescribed medication
- Maintain healthy diet
- Regular exercise

**Seek urgent care if:**
- Very high or very low readings that do not respond to treatment
- Confusion, fainting, or fruity-smelling breath

**Important:** ` + Disclaimer + ` Consult healthcare professionals for proper management.`,
		},
	}
}
