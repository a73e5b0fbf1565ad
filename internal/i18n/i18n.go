// Package i18n holds the user-facing notices shown in both site languages.
package i18n

const (
	LangAZ = "az"
	LangEN = "en"

	DefaultLang = LangEN

	CategorySuccess = "success"
	CategoryDanger  = "danger"
)

const (
	KeyMissingFields   = "missing_fields"
	KeyUserExists      = "user_exists"
	KeySignupSuccess   = "signup_success"
	KeyEmailNotFound   = "email_not_found"
	KeyWrongPassword   = "wrong_password"
	KeyLoginSuccess    = "login_success"
	KeyLoggedOut       = "logged_out"
	KeyLoginRequired   = "login_required"
	KeyNoImage         = "no_image"
	KeyNoFile          = "no_file"
	KeyWrongFormat     = "wrong_format"
	KeyUploadSuccess   = "upload_success"
	KeyUploadFailed    = "upload_failed"
	KeyPredictionError = "prediction_error"
	KeyImageDeleted    = "image_deleted"
	KeyUnrecognized    = "unrecognized"
)

// Flash is a notice queued for the next rendered page.
type Flash struct {
	Category string
	Message  string
}

var messages = map[string]map[string]string{
	KeyMissingFields: {
		LangEN: "Email and password are required.",
		LangAZ: "E-poçt və şifrə tələb olunur.",
	},
	KeyUserExists: {
		LangEN: "User already exists.",
		LangAZ: "İstifadəçi artıq mövcuddur.",
	},
	KeySignupSuccess: {
		LangEN: "Account created successfully! Please log in.",
		LangAZ: "Hesab uğurla yaradıldı! Zəhmət olmasa daxil olun.",
	},
	KeyEmailNotFound: {
		LangEN: "No account with this email exists. Create a new one.",
		LangAZ: "Bu e-poçt ünvanı ilə hesab tapılmadı. Yeni bir hesab yaradın.",
	},
	KeyWrongPassword: {
		LangEN: "Incorrect password. Please try again.",
		LangAZ: "Şifrə yanlışdır. Zəhmət olmasa yenidən cəhd edin.",
	},
	KeyLoginSuccess: {
		LangEN: "Logged in successfully!",
		LangAZ: "Uğurla daxil oldunuz!",
	},
	KeyLoggedOut: {
		LangEN: "Logged out.",
		LangAZ: "Sistemdən çıxıldı.",
	},
	KeyLoginRequired: {
		LangEN: "Please log in to continue.",
		LangAZ: "Davam etmək üçün daxil olun.",
	},
	KeyNoImage: {
		LangEN: "No image selected.",
		LangAZ: "Şəkil seçilməyib.",
	},
	KeyNoFile: {
		LangEN: "No file selected.",
		LangAZ: "Fayl seçilməyib.",
	},
	KeyWrongFormat: {
		LangEN: "Only png, jpg, jpeg and gif files are allowed.",
		LangAZ: "Yalnız png, jpg, jpeg və gif formatları qəbul olunur.",
	},
	KeyUploadSuccess: {
		LangEN: "Image successfully uploaded.",
		LangAZ: "Şəkil uğurla yükləndi.",
	},
	KeyUploadFailed: {
		LangEN: "The image could not be saved. Please try again.",
		LangAZ: "Şəkil yadda saxlanıla bilmədi. Yenidən cəhd edin.",
	},
	KeyPredictionError: {
		LangEN: "Error during prediction.",
		LangAZ: "Proqnoz zamanı xəta baş verdi.",
	},
	KeyImageDeleted: {
		LangEN: "Image deleted successfully.",
		LangAZ: "Şəkil uğurla silindi.",
	},
	KeyUnrecognized: {
		LangEN: "Image not recognized / Low confidence",
		LangAZ: "Şəkil tanınmadı / Aşağı etibarlılıq",
	},
}

var successKeys = map[string]bool{
	KeySignupSuccess: true,
	KeyLoginSuccess:  true,
	KeyLoggedOut:     true,
	KeyUploadSuccess: true,
	KeyImageDeleted:  true,
}

// Supported reports whether lang is one of the site languages.
func Supported(lang string) bool {
	return lang == LangAZ || lang == LangEN
}

// Message returns the text for key in lang, falling back to English and
// finally to the key itself.
func Message(key, lang string) string {
	byLang, ok := messages[key]
	if !ok {
		return key
	}
	if msg, ok := byLang[lang]; ok {
		return msg
	}
	return byLang[DefaultLang]
}

func Category(key string) string {
	if successKeys[key] {
		return CategorySuccess
	}
	return CategoryDanger
}

func NewFlash(key, lang string) Flash {
	return Flash{Category: Category(key), Message: Message(key, lang)}
}
