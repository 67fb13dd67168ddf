package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var resetLinkTemplate = template.Must(template.New("reset-link").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>🔐 Восстановление пароля</h2>
  <p>Вы запросили сброс пароля. Перейдите по ссылке, чтобы задать новый пароль:</p>
  <p><a href="{{.Link}}">Сбросить пароль</a></p>
  <p style="color: #666;">Ссылка действительна в течение <strong>1 часа</strong>.</p>
  <p style="color: #999;">Это автоматическое письмо. Пожалуйста, не отвечайте на него.</p>
</body>
</html>`))

var codeTemplate = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px;">
    <h2 style="color: #333;">{{.Title}}</h2>
    <p style="color: #666; font-size: 16px;">{{.Intro}}</p>
    <div style="background-color: #f0f0f0; padding: 20px; border-radius: 5px; text-align: center; margin: 20px 0;">
      <span style="font-size: 32px; font-weight: bold; color: #333; letter-spacing: 5px;">{{.Code}}</span>
    </div>
    <p style="color: #999; font-size: 14px;">Код действителен {{.Validity}}</p>
  </div>
</body>
</html>`))

var credentialsTemplate = template.Must(template.New("credentials").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; padding: 20px;">
  <h1>🎉 Регистрация завершена!</h1>
  <p><strong>Ваш логин:</strong> {{.Login}}</p>
  <p><strong>Ваш пароль:</strong> {{.Password}}</p>
  {{if .Phone}}<p><strong>Телефон:</strong> {{.Phone}}</p>{{end}}
  <p><strong>⚠️ Важно!</strong> Сохраните эти данные в надёжном месте.
  Они понадобятся для входа в аккаунт при следующих посещениях.</p>
  <p style="color: #999;">Это автоматическое письмо. Пожалуйста, не отвечайте на него.</p>
</body>
</html>`))

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// Templates are parsed at init and only take strings.
		panic(err)
	}
	return buf.String()
}

func ResetLink(to, link string) Message {
	return Message{
		To:      to,
		Subject: "🔐 Восстановление пароля",
		HTML:    render(resetLinkTemplate, struct{ Link string }{link}),
		Text:    "Ссылка для сброса пароля: " + link + "\nСсылка действительна 1 час",
	}
}

func ResetCode(to, code string) Message {
	return codeMessage(to, "🔐 Код для сброса пароля", "🔐 Восстановление пароля",
		"Вы запросили сброс пароля. Используйте код ниже для создания нового пароля:", code, "15 минут")
}

func VerificationCode(to, code string) Message {
	return codeMessage(to, "Код подтверждения email", "Подтверждение email",
		"Ваш код подтверждения:", code, "10 минут")
}

func Credentials(to, login, password, phone string) Message {
	return Message{
		To:      to,
		Subject: "🎉 Ваши данные для входа",
		HTML: render(credentialsTemplate, struct{ Login, Password, Phone string }{
			login, password, phone,
		}),
	}
}

func codeMessage(to, subject, title, intro, code, validity string) Message {
	return Message{
		To:      to,
		Subject: subject,
		HTML: render(codeTemplate, struct{ Title, Intro, Code, Validity string }{
			title, intro, code, validity,
		}),
		Text: fmt.Sprintf("%s %s\nКод действителен %s", intro, code, validity),
	}
}
