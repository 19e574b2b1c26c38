package forms

import "strings"

type CourseForm struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Subject     string `json:"subject" validate:"max=100"`
	Length      string `json:"course_length" validate:"max=100"`
	Published   bool   `json:"published"`
}

func (f *CourseForm) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}

type TextForm struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
	VideoName   string `json:"video_name" validate:"max=500"`
	Content     string `json:"content"`
}

func (f *TextForm) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}

type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (f *LoginForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}

type RegisterForm struct {
	Username    string `json:"username" validate:"required,alphanum,max=150"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	StaffStatus bool   `json:"staff_status"`
}

func (f *RegisterForm) Validate() error {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}

type PasswordChangeForm struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (f *PasswordChangeForm) Validate() error {
	ve := &ValidationError{}
	check(ve, f)
	return ve.orNil()
}
