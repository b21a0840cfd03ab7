package mockportal

import "html/template"

var loginTmpl = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><title>Вход</title></head>
<body>
{{if .Failed}}<div class="alert">Неверный логин или пароль</div>{{end}}
<form method="post" action="login.php">
  <input type="email" name="email">
  <input type="password" name="password">
  <button type="submit">Войти</button>
</form>
</body></html>
`))

var authorsTmpl = template.Must(template.New("authors").Parse(`<!doctype html>
<html><head><title>Авторы</title></head>
<body>
<input id="col1_filter" name="col1_filter">
<table id="alist">
  <thead><tr><th>ФИО</th><th></th></tr></thead>
  <tbody>
  {{range .Rows}}<tr>
    <td><a class="link-dark" href="{{.Link}}">{{.Name}}</a></td>
    <td><a class="link-primaru text-end" href="{{.Link}}">Профиль</a></td>
  </tr>
  {{end}}</tbody>
</table>
<ul class="pagination">
  <li class="paginate_button page-item previous" id="alist_previous"><a href="#">Назад</a></li>
  <li class="{{.NextClass}}" id="alist_next"><a href="#">Вперёд</a></li>
</ul>
</body></html>
`))

var profileTmpl = template.Must(template.New("profile").Parse(`<!doctype html>
<html><head><title>Профиль автора</title></head>
<body>
<form method="get" action="authors.php"><input name="col1_filter"></form>
<form method="post" action="author.php?id={{.ID}}">
  <input type="hidden" name="token" value="{{.Token}}">
  <input type="text" name="fio" value="{{.Name}}">
  <select name="status"><option value="1" selected>Активен</option><option value="0">Архив</option></select>
  <input type="checkbox" name="notify" value="1">
  <button type="submit">Сохранить</button>
</form>
</body></html>
`))
