package notify

// digestTemplate renders a batch of bid records as one HTML table.
// The data is a []domain.BidRecord.
const digestTemplate = `<html>
<body style="font-family: sans-serif;">
<p>本次抓取发现 {{len .}} 条新招标信息：</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
  <tr style="background: #f0f0f0;">
    <th>项目名称</th>
    <th>预算金额</th>
    <th>采购人</th>
    <th>获取采购文件时间</th>
    <th>来源</th>
  </tr>
{{- range .}}
  <tr>
    <td>{{.ProjectName}}</td>
    <td>{{.Budget}}</td>
    <td>{{.Purchaser}}</td>
    <td>{{.DocTime}}</td>
    <td><a href="{{.SourceURL}}">{{if .SourceTitle}}{{.SourceTitle}}{{else}}链接{{end}}</a></td>
  </tr>
{{- end}}
</table>
</body>
</html>`
