package mailer

const digestHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TenderWatch Daily Report</title>
</head>
<body style="margin:0;padding:24px;background-color:#f3f4f6;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;color:#111827;line-height:1.5;">
<div style="max-width:640px;margin:0 auto;background:#ffffff;border-radius:8px;border:1px solid #e5e7eb;overflow:hidden;">

  <div style="padding:24px;background:linear-gradient(135deg,#0d1117 0%,#1a2035 100%);color:#ffffff;text-align:center;">
    <p style="margin:0 0 4px 0;font-size:11px;font-weight:700;text-transform:uppercase;letter-spacing:2px;color:#3d8bff;">Daily Report &bull; {{.Date}}</p>
    <h1 style="margin:0 0 8px 0;font-size:26px;font-weight:800;">TenderWatch</h1>
    <p style="margin:0;font-size:13px;color:#8b949e;">{{.Total}} analyzed &bull; {{.High}} strong &bull; {{.Medium}} moderate</p>
  </div>

  <div style="padding:24px;">
    <p style="margin:0 0 4px 0;font-size:18px;font-weight:700;">Hello, {{.Name}}</p>
    <p style="margin:0 0 20px 0;font-size:13px;color:#6b7280;">Your matches for <strong>{{.Sector}}</strong>, scored against your profile.</p>

    {{if .Items}}
    {{range .Items}}
    <div style="margin-bottom:14px;background:#ffffff;border:1px solid #eaedf2;border-radius:10px;padding:16px;">
      <span style="display:inline-block;padding:3px 10px;border-radius:12px;font-size:11px;font-weight:700;color:#ffffff;background:{{.Color}};">{{printf "%.0f" .Score}}/100 &mdash; {{.Level}}</span>
      <p style="margin:8px 0 6px 0;font-size:14px;font-weight:700;">{{.Title}}</p>
      {{if .Explanation}}<p style="margin:0 0 10px 0;font-size:12px;color:#6b7280;">{{.Explanation}}</p>{{end}}
      <a href="{{.URL}}" target="_blank" style="display:inline-block;background:#0d1117;color:#ffffff;padding:8px 16px;border-radius:16px;text-decoration:none;font-size:12px;font-weight:600;">View tender &rarr;</a>
    </div>
    {{end}}
    {{else}}
    <p style="padding:30px;text-align:center;color:#9ca3af;font-style:italic;">No matching tenders today.</p>
    {{end}}
  </div>

  <div style="padding:16px 24px;background:#f8f9fc;border-top:1px solid #eaedf2;text-align:center;">
    <p style="margin:0;font-size:11px;color:#9ca3af;">TenderWatch &bull; reply with subject "unsubscribe" to stop these reports.</p>
  </div>

</div>
</body>
</html>`

const welcomeHTMLTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /></head>
<body style="margin:0;padding:20px;background-color:#f5f6fa;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Arial,sans-serif;">
<div style="max-width:600px;margin:0 auto;background:#ffffff;border-radius:8px;overflow:hidden;border:1px solid #e5e7eb;">
  <div style="background:linear-gradient(135deg,#2c3e50,#3498db);padding:28px;text-align:center;">
    <h1 style="color:#ffffff;margin:0;font-size:22px;">Welcome to TenderWatch</h1>
  </div>
  <div style="padding:28px;">
    <p style="font-size:15px;color:#2c3e50;">Hello <strong>{{.Name}}</strong>,</p>
    <p style="color:#555555;line-height:1.6;">Your registration is confirmed. Starting tomorrow morning you will receive a daily report with the tenders best matching your profile:</p>
    <ul style="color:#555555;line-height:1.6;">
      <li><strong>Sector:</strong> {{.Sector}}</li>
      <li><strong>Keywords:</strong> {{.Keywords}}</li>
      <li><strong>Exclusions:</strong> {{.Exclusions}}</li>
    </ul>
    <p style="margin-top:22px;font-style:italic;color:#7f8c8d;">The TenderWatch team</p>
  </div>
  <div style="background-color:#f8f9fa;padding:16px;text-align:center;border-top:1px solid #eeeeee;">
    <p style="color:#999999;font-size:11px;margin:0;">This is an automated message. Reply with subject "unsubscribe" to opt out.</p>
  </div>
</div>
</body>
</html>`
