package datapush

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"RentalDashboard/src/dashboard"
	"RentalDashboard/src/report"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// DingTalkPusher 通过自定义机器人 webhook 推送消息
type DingTalkPusher struct {
	Webhook  string
	Secret   string // 加签密钥，为空不加签
	Language string // 报表数字格式
	Client   *http.Client
	Retries  int
	Interval time.Duration

	now func() time.Time
}

func NewDingTalkPusher(webhook, secret, language string) *DingTalkPusher {
	return &DingTalkPusher{
		Webhook:  webhook,
		Secret:   secret,
		Language: language,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Retries:  RETRY_TIMES,
		Interval: RETRY_INTERVAL,
		now:      time.Now,
	}
}

// sign 计算加签：base64(HmacSHA256(timestamp + "\n" + secret))
func sign(timestamp int64, secret string) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, secret)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// requestURL 带上 timestamp 和 sign 参数
func (p *DingTalkPusher) requestURL() (string, error) {
	if p.Secret == "" {
		return p.Webhook, nil
	}
	u, err := url.Parse(p.Webhook)
	if err != nil {
		return "", fmt.Errorf("webhook 地址无效: %v", err)
	}
	ts := p.now().UnixMilli()
	q := u.Query()
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", sign(ts, p.Secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendMarkdown 发送 markdown 消息，失败时重试
func (p *DingTalkPusher) SendMarkdown(ctx context.Context, title, text string) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  text,
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	return retry(ctx, func() error {
		return p.post(ctx, payloadBytes)
	}, p.Retries, p.Interval)
}

func (p *DingTalkPusher) post(ctx context.Context, payloadBytes []byte) error {
	// 每次重试重新签名，timestamp 有效期只有一小时
	target, err := p.requestURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook 返回 %d: %s", resp.StatusCode, respBody)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}
	return nil
}

// PushPage 把一次渲染结果作为文本报表推送
func (p *DingTalkPusher) PushPage(ctx context.Context, page *dashboard.Page) error {
	title, text, err := Markdown(page, p.Language)
	if err != nil {
		return err
	}
	return p.SendMarkdown(ctx, title, text)
}

// Markdown 生成推送内容
func Markdown(page *dashboard.Page, language string) (title, text string, err error) {
	var buf bytes.Buffer
	if err := report.Text(&buf, page, language); err != nil {
		return "", "", fmt.Errorf("生成报表失败: %w", err)
	}
	title = fmt.Sprintf("共享单车使用情况 %s %s", page.Dataset, page.Range)
	text = fmt.Sprintf("### %s\n\n```\n%s```\n", title, buf.String())
	return title, text, nil
}

// 重试函数
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	if times < 1 {
		times = 1
	}
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("重试中止: %w", ctx.Err())
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
