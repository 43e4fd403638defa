package chat

// Detect guesses the message language from Unicode script ranges. Devanagari
// covers both Hindi and Marathi; without deeper analysis it is reported as
// Hindi.
func Detect(text string) string {
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x097F:
			return "hi"
		case r >= 0x0980 && r <= 0x09FF:
			return "bn"
		case r >= 0x0B80 && r <= 0x0BFF:
			return "ta"
		case r >= 0x0C00 && r <= 0x0C7F:
			return "te"
		case r >= 0x0C80 && r <= 0x0CFF:
			return "kn"
		}
	}
	return "en"
}

var personas = map[string]string{
	"en": "You are a helpful hospital assistant. Answer questions about doctors, departments, appointments, lab reports, vaccinations and hospital services. Be concise and polite. If the question is a medical emergency, tell the user to call the hospital helpline immediately.",
	"hi": "आप एक सहायक अस्पताल सहायक हैं। डॉक्टरों, विभागों, अपॉइंटमेंट, लैब रिपोर्ट, टीकाकरण और अस्पताल सेवाओं के बारे में प्रश्नों का उत्तर दें। संक्षिप्त और विनम्र रहें।",
	"bn": "আপনি একজন সহায়ক হাসপাতাল সহকারী। ডাক্তার, বিভাগ, অ্যাপয়েন্টমেন্ট এবং হাসপাতালের পরিষেবা সম্পর্কে প্রশ্নের উত্তর দিন। সংক্ষিপ্ত এবং বিনয়ী হন।",
	"ta": "நீங்கள் ஒரு உதவிகரமான மருத்துவமனை உதவியாளர். மருத்துவர்கள், துறைகள், சந்திப்புகள் மற்றும் மருத்துவமனை சேவைகள் பற்றிய கேள்விகளுக்கு பதிலளிக்கவும்.",
	"te": "మీరు సహాయకరమైన ఆసుపత్రి సహాయకుడు. వైద్యులు, విభాగాలు, అపాయింట్‌మెంట్లు మరియు ఆసుపత్రి సేవల గురించి ప్రశ్నలకు సమాధానం ఇవ్వండి.",
	"kn": "ನೀವು ಸಹಾಯಕ ಆಸ್ಪತ್ರೆ ಸಹಾಯಕರು. ವೈದ್ಯರು, ವಿಭಾಗಗಳು, ಅಪಾಯಿಂಟ್‌ಮೆಂಟ್‌ಗಳು ಮತ್ತು ಆಸ್ಪತ್ರೆ ಸೇವೆಗಳ ಬಗ್ಗೆ ಪ್ರಶ್ನೆಗಳಿಗೆ ಉತ್ತರಿಸಿ.",
}

// Persona returns the system persona for a language, falling back to English.
func Persona(language string) string {
	if p, ok := personas[language]; ok {
		return p
	}
	return personas["en"]
}
