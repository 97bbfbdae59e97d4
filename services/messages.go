package services

// Notification texts, used when the remote service gave no message.
const (
	msgSignUpOK       = "Account created successfully"
	msgLogInOK        = "Logged in successfully"
	msgLogOutOK       = "Logged out successfully"
	msgProfileOK      = "Profile updated successfully"
	msgSignUpFailed   = "Failed to create account"
	msgLogInFailed    = "Failed to login"
	msgLogOutFailed   = "Failed to logout"
	msgProfileFailed  = "Failed to update profile"
	msgCheckFailed    = "Failed to check session"
	msgChannelFailed  = "Failed to connect to live updates"
	msgUsersFailed    = "Failed to fetch users"
	msgMessagesFailed = "Failed to fetch messages"
	msgSendFailed     = "Failed to send message"
	msgNoSelectedUser = "No user selected"
)
