package service

// Client-facing messages. The frontend matches on some of these strings, so
// they are kept exactly as the existing clients expect them.
const (
	MsgUserExists               = "User already exist!"
	MsgUserNotFound             = "User Not Found!"
	MsgInvalidCredentials       = "Invalid Credentials!"
	MsgGoogleAccount            = "Account is associated with Google sign-in!"
	MsgEmailAlreadyVerified     = "Email already verified!"
	MsgVerificationEmailSent    = "Verification email sent successfully!"
	MsgVerificationEmailFailed  = "Verification email sent failed!"
	MsgEmailVerified            = "Email verified successfully!"
	MsgVerificationTokenMissing = "Verification token not found!"
	MsgResetEmailSent           = "Reset password email sent successfully!"
	MsgResetEmailFailed         = "Reset password email sent failed!"
	MsgResetTokenMissing        = "Reset password token not found!"
	MsgPasswordReset            = "Password reset successfully!"
	MsgSessionMismatch          = "You can only request verification for your own account!"
	MsgGoogleEmailUnverified    = "Google account email is not verified!"

	MsgUsernameExists    = "Username already exist!"
	MsgUsernameAvailable = "Username available!"
	MsgUserUpdated       = "User updated successfully!"

	MsgSkillExists           = "Skill already exists!"
	MsgSkillCategoryExists   = "Skill category already exists!"
	MsgSkillCategoryNotFound = "Skill category not found!"
	MsgSkillsRequired        = "Skills are required!"

	MsgPlaylistExists        = "Playlist already exists!"
	MsgPlaylistURLInvalid    = "Invalid playlist url!"
	MsgPlaylistDetailsFailed = "Playlist details fetching failed!"
	MsgPlaylistItemsFailed   = "Playlist items fetching failed!"
	MsgCourseNotFound        = "Course not found!"
	MsgVideoNotFound         = "Video not found in course!"
)
